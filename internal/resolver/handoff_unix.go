//go:build unix

package resolver

import (
	"os/exec"
	"syscall"

	"github.com/rendis/credgate/pkg/schema"
)

// Handoff replaces the current process image with the wrapped service via
// execve. The resolved environment crosses over in process memory only —
// never as command-line arguments or files. On success Handoff does not
// return.
func Handoff(name string, args []string, env []string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeResolve, "service binary %q not found: %v", name, err).WithCause(err)
	}
	argv := append([]string{name}, args...)
	if err := syscall.Exec(path, argv, env); err != nil {
		return schema.NewErrorf(schema.ErrCodeResolve, "exec %s: %v", path, err).WithCause(err)
	}
	return nil
}
