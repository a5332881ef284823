// Package mcp exposes the protection gateway to agent runtimes over the
// Model Context Protocol. Agents can pre-flight a command before running it,
// inspect what credentials a service needs, seal values into envelopes, and
// review the decision trail. There is deliberately no decrypt tool: opening
// envelopes stays with the local approval workflow.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/credgate/internal/audit"
	"github.com/rendis/credgate/internal/envelope"
	"github.com/rendis/credgate/internal/policy"
	"github.com/rendis/credgate/internal/shellscan"
)

// GuardServerDeps holds the dependencies for creating a GuardServer.
type GuardServerDeps struct {
	Scanner  *shellscan.Scanner
	Keys     policy.CredentialKeys
	Keychain *envelope.Keychain
	Audit    audit.Log
	Logger   *slog.Logger
}

// GuardServer wraps an MCP server with credgate-specific tool handlers.
type GuardServer struct {
	scanner   *shellscan.Scanner
	keys      policy.CredentialKeys
	keychain  *envelope.Keychain
	audit     audit.Log
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewGuardServer creates a GuardServer with all 4 tools registered.
func NewGuardServer(deps GuardServerDeps) *GuardServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &GuardServer{
		scanner:  deps.Scanner,
		keys:     deps.Keys,
		keychain: deps.Keychain,
		audit:    deps.Audit,
		logger:   logger,
	}

	mcpSrv := server.NewMCPServer(
		"credgate",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Credgate protects project credentials. Use guard.scan to check a shell command before running it, guard.requirements to see which credential keys a service needs, guard.seal to encrypt a value for at-rest storage, and guard.audit to review recent decisions."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *GuardServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *GuardServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *GuardServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: scanTool(), Handler: s.handleScan},
		{Tool: requirementsTool(), Handler: s.handleRequirements},
		{Tool: sealTool(), Handler: s.handleSeal},
		{Tool: auditTool(), Handler: s.handleAudit},
	}
}

// --- Tool definitions ---

func scanTool() mcp.Tool {
	return mcp.NewTool("guard.scan",
		mcp.WithDescription("Check a shell command against the credential protection policy before running it"),
		mcp.WithString("command", mcp.Required(), mcp.Description("The full shell command line to check")),
		mcp.WithString("cwd", mcp.Description("Working directory the command would run in")),
		mcp.WithString("service", mcp.Description("Service name the command runs on behalf of")),
		mcp.WithString("session_id", mcp.Description("Caller session identifier for the audit trail")),
	)
}

func requirementsTool() mcp.Tool {
	return mcp.NewTool("guard.requirements",
		mcp.WithDescription("List the credential key names a registered service requires"),
		mcp.WithString("service", mcp.Required(), mcp.Description("Registered service name")),
	)
}

func sealTool() mcp.Tool {
	return mcp.NewTool("guard.seal",
		mcp.WithDescription("Encrypt a value into an envelope safe to store in configuration files"),
		mcp.WithString("value", mcp.Required(), mcp.Description("The plaintext value to seal")),
	)
}

func auditTool() mcp.Tool {
	return mcp.NewTool("guard.audit",
		mcp.WithDescription("List recent protection decisions, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default 20)")),
	)
}
