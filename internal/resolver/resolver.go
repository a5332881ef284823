// Package resolver populates a process environment with credentials before
// handing control to the wrapped service. Indirect vault references go
// through the external secret CLI; resolved values live only in process
// memory and are passed to the service through its environment, never as
// argv or files.
package resolver

import (
	"context"
	"log/slog"
	"strings"
)

// indirectPrefix marks a mapping value as a vault reference for the external
// CLI rather than a literal value.
const indirectPrefix = "op://"

// IsIndirectRef reports whether a mapping value is an indirect vault
// reference. Anything else is a literal (URLs, zone IDs and similar
// non-secret identifiers) assigned directly.
func IsIndirectRef(value string) bool {
	return strings.HasPrefix(value, indirectPrefix)
}

// KeyStatus describes how one required key ended up.
type KeyStatus string

const (
	// StatusInherited means the key was already present in the environment
	// and was left alone (host/CI overrides win).
	StatusInherited KeyStatus = "inherited"
	// StatusResolved means the key was resolved through the secret CLI.
	StatusResolved KeyStatus = "resolved"
	// StatusLiteral means the mapping held a literal value.
	StatusLiteral KeyStatus = "literal"
	// StatusUnmapped means the vault mapping has no entry for the key.
	StatusUnmapped KeyStatus = "unmapped"
	// StatusFailed means the secret CLI could not resolve the reference.
	StatusFailed KeyStatus = "failed"
)

// Report summarizes one resolution pass without carrying any values.
type Report struct {
	Statuses map[string]KeyStatus
}

// Failed returns the keys that could not be resolved, in no particular order.
func (r Report) Failed() []string {
	var out []string
	for key, st := range r.Statuses {
		if st == StatusFailed {
			out = append(out, key)
		}
	}
	return out
}

// Resolver resolves the credential keys one service requires. The cache maps
// reference string to resolved value for the lifetime of this Resolver (one
// process bootstrap): two keys sharing a reference resolve identically with
// a single CLI invocation. Nothing is ever persisted.
type Resolver struct {
	cli    SecretCLI
	logger *slog.Logger
	cache  map[string]string
	failed map[string]struct{}
}

// New creates a Resolver over the given secret CLI.
func New(cli SecretCLI, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cli:    cli,
		logger: logger,
		cache:  make(map[string]string),
		failed: make(map[string]struct{}),
	}
}

// ResolveEnviron produces the environment additions for the given required
// keys. environ is the inherited environment (key to value); keys already
// present there are skipped. A failed CLI lookup marks that key failed and
// moves on — one broken credential must not take down the whole bootstrap;
// the wrapped service's own checks are the final gate.
func (r *Resolver) ResolveEnviron(ctx context.Context, keys []string, mappings map[string]string, environ map[string]string) (map[string]string, Report) {
	resolved := make(map[string]string)
	report := Report{Statuses: make(map[string]KeyStatus, len(keys))}

	for _, key := range keys {
		if _, ok := environ[key]; ok {
			report.Statuses[key] = StatusInherited
			continue
		}

		ref, ok := mappings[key]
		if !ok {
			report.Statuses[key] = StatusUnmapped
			r.logger.InfoContext(ctx, "credential key has no vault mapping, leaving unset",
				slog.String("key", key))
			continue
		}

		if !IsIndirectRef(ref) {
			resolved[key] = ref
			report.Statuses[key] = StatusLiteral
			continue
		}

		value, err := r.readCached(ctx, ref)
		if err != nil {
			report.Statuses[key] = StatusFailed
			r.logger.WarnContext(ctx, "secret resolution failed, leaving key unset",
				slog.String("key", key),
				slog.String("ref", ref),
				slog.String("error", err.Error()))
			continue
		}
		resolved[key] = value
		report.Statuses[key] = StatusResolved
	}
	return resolved, report
}

// readCached consults the resolution cache before invoking the CLI. Failures
// are cached too: retrying a reference within one bootstrap cannot change
// the outcome deterministically and only masks bugs.
func (r *Resolver) readCached(ctx context.Context, ref string) (string, error) {
	if value, ok := r.cache[ref]; ok {
		return value, nil
	}
	if _, ok := r.failed[ref]; ok {
		return "", errAlreadyFailed
	}
	value, err := r.cli.Read(ctx, ref)
	if err != nil {
		r.failed[ref] = struct{}{}
		return "", err
	}
	r.cache[ref] = value
	return value, nil
}

type alreadyFailedError struct{}

func (alreadyFailedError) Error() string { return "reference already failed in this process" }

var errAlreadyFailed = alreadyFailedError{}

// EnvironMap converts os.Environ()-style "KEY=value" pairs into a map.
func EnvironMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}

// MergeEnviron appends resolved keys to os.Environ()-style pairs.
func MergeEnviron(environ []string, resolved map[string]string) []string {
	out := make([]string, 0, len(environ)+len(resolved))
	out = append(out, environ...)
	for key, value := range resolved {
		out = append(out, key+"="+value)
	}
	return out
}
