// Package audit records every scanner decision in an append-only local log.
// The log stores commands, verdicts, and reasons — never credential values.
// It is strictly best-effort: a logging failure must not change a decision.
package audit

import (
	"context"
	"time"
)

// Entry is one recorded decision.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `json:"session_id,omitempty"`
	Service   string    `json:"service,omitempty"`
	Kind      string    `json:"kind"`
	Command   string    `json:"command,omitempty"`
	Path      string    `json:"path,omitempty"`
	Verdict   string    `json:"verdict"`
	Reason    string    `json:"reason,omitempty"`
}

// Log is the decision-log contract. Implementations must be safe for
// concurrent use across the short-lived processes that share one database
// file.
type Log interface {
	Append(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	Migrate(ctx context.Context) error
	Close() error
}
