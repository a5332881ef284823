package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request kinds accepted on the decision channel.
const (
	RequestKindCommand   = "command"
	RequestKindFileRead  = "file_read"
	RequestKindFileWrite = "file_write"
)

// Decision verdicts.
const (
	VerdictAllow = "allow"
	VerdictDeny  = "deny"
)

// ScanRequest describes one intercepted operation submitted for a decision.
// Command requests carry the raw shell command line; file requests carry the
// path the interception layer is about to touch.
type ScanRequest struct {
	Kind      string `json:"kind"`
	Command   string `json:"command,omitempty"`
	Path      string `json:"path,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
	Service   string `json:"service,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Decision is the verdict returned for a single ScanRequest.
// Deny carries a specific reason so an operator can tell a genuine block
// from a misconfigured hook. The reason never contains protected values.
type Decision struct {
	Verdict string `json:"decision"`
	Reason  string `json:"reason,omitempty"`
}

// Denied reports whether the decision is a deny.
func (d Decision) Denied() bool { return d.Verdict == VerdictDeny }

// Allow returns an allow decision.
func Allow() Decision {
	return Decision{Verdict: VerdictAllow}
}

// Deny returns a deny decision with the given reason.
func Deny(reason string) Decision {
	return Decision{Verdict: VerdictDeny, Reason: reason}
}

// Denyf returns a deny decision with a formatted reason.
func Denyf(format string, args ...any) Decision {
	return Decision{Verdict: VerdictDeny, Reason: fmt.Sprintf(format, args...)}
}

// ParseScanRequest decodes and validates a decision request. Any failure here
// must be treated as a deny by the caller (fail-closed): a request we cannot
// parse is a request we cannot vouch for.
func ParseScanRequest(data []byte) (*ScanRequest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewError(ErrCodeMalformedInput, "empty decision request")
	}
	var req ScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, NewErrorf(ErrCodeMalformedInput, "decision request is not valid JSON: %v", err).WithCause(err)
	}
	switch req.Kind {
	case RequestKindCommand:
		if req.Command == "" {
			return nil, NewError(ErrCodeMalformedInput, "command request is missing 'command'")
		}
	case RequestKindFileRead, RequestKindFileWrite:
		if req.Path == "" {
			return nil, NewErrorf(ErrCodeMalformedInput, "%s request is missing 'path'", req.Kind)
		}
	case "":
		return nil, NewError(ErrCodeMalformedInput, "decision request is missing 'kind'")
	default:
		return nil, NewErrorf(ErrCodeMalformedInput, "unknown request kind %q", req.Kind)
	}
	return &req, nil
}
