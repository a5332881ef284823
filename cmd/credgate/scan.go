package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rendis/credgate/internal/audit"
	"github.com/rendis/credgate/internal/logging"
	"github.com/rendis/credgate/internal/policy"
	"github.com/rendis/credgate/internal/shellscan"
	"github.com/rendis/credgate/pkg/schema"
)

// Deny exits with 2 so hook callers can distinguish a block from a crash.
const denyExitCode = 2

// runScan reads one JSON request from stdin, prints the decision to stdout,
// and exits 0 on allow or 2 on deny. Any failure along the way denies: a
// request the scanner cannot understand is never waved through.
func runScan(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		emitDecision(schema.Denyf("cannot read request: %v", err))
	}

	req, err := schema.ParseScanRequest(data)
	if err != nil {
		emitDecision(schema.Denyf("malformed request: %v", err))
	}

	scanner, _, err := buildScanner()
	if err != nil {
		logger.Error("policy load failed", slog.String("error", err.Error()))
		emitDecision(schema.Denyf("policy unavailable: %v", err))
	}

	decision := scanner.Scan(req)
	recordDecision(cfg, logger, req, decision)
	emitDecision(decision)
}

// buildScanner loads the registry files and assembles a scanner. The
// credential-key registry is returned alongside for callers that need it.
func buildScanner() (*shellscan.Scanner, policy.CredentialKeys, error) {
	loader, err := policy.NewLoader()
	if err != nil {
		return nil, policy.CredentialKeys{}, err
	}
	keys, err := loader.LoadServers(serversPath())
	if err != nil {
		return nil, policy.CredentialKeys{}, err
	}
	resources, rules, err := loader.LoadPolicy(policyPath())
	if err != nil {
		return nil, policy.CredentialKeys{}, err
	}
	return shellscan.New(resources, keys, rules), keys, nil
}

// recordDecision appends to the audit log, best-effort. Scanning must keep
// working when the log is unavailable.
func recordDecision(cfg Config, logger *slog.Logger, req *schema.ScanRequest, decision schema.Decision) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = logging.WithSessionID(ctx, req.SessionID)
	ctx = logging.WithService(ctx, req.Service)

	log, err := audit.NewLibSQLLog("file:" + cfg.DBPath)
	if err != nil {
		logger.WarnContext(ctx, "audit log unavailable", slog.String("error", err.Error()))
		return
	}
	defer log.Close()

	if err := log.Migrate(ctx); err != nil {
		logger.WarnContext(ctx, "audit migration failed", slog.String("error", err.Error()))
		return
	}
	err = log.Append(ctx, &audit.Entry{
		SessionID: req.SessionID,
		Service:   req.Service,
		Kind:      req.Kind,
		Command:   req.Command,
		Path:      req.Path,
		Verdict:   decision.Verdict,
		Reason:    decision.Reason,
	})
	if err != nil {
		logger.WarnContext(ctx, "audit append failed", slog.String("error", err.Error()))
	}
}

// emitDecision prints the decision JSON and exits the process.
func emitDecision(decision schema.Decision) {
	data, err := json.Marshal(decision)
	if err != nil {
		// Should not happen; deny anyway.
		fmt.Println(`{"decision":"deny","reason":"internal encoding error"}`)
		os.Exit(denyExitCode)
	}
	fmt.Println(string(data))
	if decision.Denied() {
		os.Exit(denyExitCode)
	}
	os.Exit(0)
}
