package resolver

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rendis/credgate/pkg/schema"
)

const defaultCLITimeout = 15 * time.Second

// SecretCLI resolves one indirect reference to its plaintext value. The
// backend is a black box: it prints the value to stdout and exits zero, or
// exits non-zero on any failure (auth, not-found, timeout). This core treats
// every failure mode identically as "unresolved".
type SecretCLI interface {
	Read(ctx context.Context, ref string) (string, error)
}

// OnePasswordCLI shells out to the 1Password CLI (`op read <ref>`).
type OnePasswordCLI struct {
	binary  string
	timeout time.Duration
}

// NewOnePasswordCLI returns a SecretCLI over the given binary. An empty
// binary defaults to "op"; a non-positive timeout defaults to 15s. The
// timeout bounds each individual invocation so one hung lookup cannot block
// the whole bootstrap.
func NewOnePasswordCLI(binary string, timeout time.Duration) *OnePasswordCLI {
	if binary == "" {
		binary = "op"
	}
	if timeout <= 0 {
		timeout = defaultCLITimeout
	}
	return &OnePasswordCLI{binary: binary, timeout: timeout}
}

// Read invokes the CLI once for ref. The reference is passed as an argument
// and the value comes back on stdout; the value itself is never written to
// disk or logged.
func (c *OnePasswordCLI) Read(ctx context.Context, ref string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, "read", ref)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", schema.NewErrorf(schema.ErrCodeTimeout,
				"secret CLI timed out after %s resolving %s", c.timeout, ref)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", schema.NewErrorf(schema.ErrCodeResolve,
			"secret CLI failed for %s: %s", ref, msg).WithCause(err)
	}
	// The CLI terminates the value with a newline; the value itself may
	// contain interior whitespace that must survive.
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}
