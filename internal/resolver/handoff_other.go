//go:build !unix

package resolver

import (
	"os"
	"os/exec"

	"github.com/rendis/credgate/pkg/schema"
)

// Handoff runs the wrapped service as a child with the resolved environment
// and mirrors its exit code. Platforms without execve get process-boundary
// semantics as close to the unix version as the OS allows. On success
// Handoff does not return.
func Handoff(name string, args []string, env []string) error {
	cmd := exec.Command(name, args...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return schema.NewErrorf(schema.ErrCodeResolve, "run %s: %v", name, err).WithCause(err)
	}
	os.Exit(0)
	return nil
}
