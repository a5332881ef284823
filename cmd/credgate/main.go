package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rendis/credgate/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		runScan(os.Args[2:])
	case "run":
		runExec(os.Args[2:])
	case "keygen":
		runKeygen(os.Args[2:])
	case "encrypt":
		runEncrypt(os.Args[2:])
	case "decrypt":
		runDecrypt(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`credgate — credential protection for agent-driven projects

Usage:
  credgate scan                      read a request from stdin, print the decision
  credgate run <service> -- <cmd>    resolve credentials and exec the service
  credgate keygen                    generate the master key file
  credgate encrypt [value]           seal a value into an ENC[...] envelope
  credgate decrypt [envelope]        open an envelope (local use only)
  credgate serve                     expose the guard tools over MCP stdio
  credgate version                   print the version

Values read from stdin when omitted. Configuration lives in ~/.credgate/.
`)
}

// newLogger builds the process logger. Everything goes to stderr so stdout
// stays clean for decisions and MCP framing.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
