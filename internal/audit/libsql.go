package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/credgate/pkg/schema"
)

// LibSQLLog implements Log using libSQL (embedded SQLite fork).
type LibSQLLog struct {
	db *sql.DB
}

// NewLibSQLLog opens a libSQL database at the given path and returns a Log.
// The path should be a file URI, e.g. "file:/path/to/audit.db".
func NewLibSQLLog(dbPath string) (*LibSQLLog, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "open libsql: %v", err).WithCause(err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLLog{db: db}, nil
}

// Close closes the database.
func (l *LibSQLLog) Close() error { return l.db.Close() }

// Migrate runs all pending database migrations.
func (l *LibSQLLog) Migrate(ctx context.Context) error {
	return runMigrations(ctx, l.db)
}

// Append records one decision. Missing ID and timestamp are filled in.
func (l *LibSQLLog) Append(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO decisions (id, created_at, session_id, service, kind, command, path, verdict, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CreatedAt, entry.SessionID, entry.Service,
		entry.Kind, entry.Command, entry.Path, entry.Verdict, entry.Reason,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "append decision: %v", err).WithCause(err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *LibSQLLog) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, created_at, session_id, service, kind, command, path, verdict, reason
		 FROM decisions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "query decisions: %v", err).WithCause(err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.SessionID, &e.Service,
			&e.Kind, &e.Command, &e.Path, &e.Verdict, &e.Reason); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeStore, "scan decision: %v", err).WithCause(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "iterate decisions: %v", err).WithCause(err)
	}
	return entries, nil
}

// Prune deletes entries older than the retention window and returns how many
// were removed.
func (l *LibSQLLog) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := l.db.ExecContext(ctx, `DELETE FROM decisions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, schema.NewErrorf(schema.ErrCodeStore, "prune decisions: %v", err).WithCause(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
