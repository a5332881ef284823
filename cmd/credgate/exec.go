package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rendis/credgate/internal/logging"
	"github.com/rendis/credgate/internal/policy"
	"github.com/rendis/credgate/internal/resolver"
	"github.com/rendis/credgate/pkg/schema"
)

// runExec resolves a service's credentials into the environment and replaces
// this process with the service command. Secret values only ever exist in
// process memory; the wrapped command sees them as ordinary env vars.
//
//	credgate run <service> -- <command> [args...]
func runExec(args []string) {
	service, command, ok := splitExecArgs(args)
	if !ok {
		fmt.Fprintln(os.Stderr, "Usage: credgate run <service> -- <command> [args...]")
		os.Exit(1)
	}

	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)
	ctx := logging.WithService(context.Background(), service)

	loader, err := policy.NewLoader()
	if err != nil {
		fatalf(ctx, logger, "policy loader init failed: %v", err)
	}
	registry, err := loader.LoadServers(serversPath())
	if err != nil {
		fatalf(ctx, logger, "cannot load servers registry: %v", err)
	}
	keys, registered := registry.ServiceKeys(service)
	if !registered {
		fatalf(ctx, logger, "service %q is not registered in %s", service, serversPath())
	}

	mappings := map[string]string{}
	vault, err := loader.LoadVaultMapping(vaultPath())
	switch {
	case err == nil:
		mappings = vault.Mappings
	case schema.IsCode(err, schema.ErrCodeNotFound):
		// No mapping file: every key is unmapped unless inherited.
	default:
		fatalf(ctx, logger, "cannot load vault mapping: %v", err)
	}

	cli := resolver.NewOnePasswordCLI(cfg.OpBinary, cfg.opTimeout())
	res := resolver.New(cli, logger)
	environ := resolver.EnvironMap(os.Environ())

	resolved, report := res.ResolveEnviron(ctx, keys, mappings, environ)
	if failed := report.Failed(); len(failed) > 0 {
		logger.WarnContext(ctx, "starting with unresolved credentials",
			slog.String("keys", strings.Join(failed, ",")))
	}

	if err := resolver.Handoff(command[0], command[1:], resolver.MergeEnviron(os.Environ(), resolved)); err != nil {
		fatalf(ctx, logger, "handoff failed: %v", err)
	}
}

// splitExecArgs separates "<service> -- <command> [args...]".
func splitExecArgs(args []string) (service string, command []string, ok bool) {
	if len(args) < 3 || args[1] != "--" {
		return "", nil, false
	}
	return args[0], args[2:], true
}

func fatalf(ctx context.Context, logger *slog.Logger, format string, args ...any) {
	logger.ErrorContext(ctx, fmt.Sprintf(format, args...))
	os.Exit(1)
}
