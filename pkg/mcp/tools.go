package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/credgate/internal/audit"
	"github.com/rendis/credgate/internal/logging"
	"github.com/rendis/credgate/pkg/schema"
)

// handleScan runs the command scanner and records the decision.
func (s *GuardServer) handleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError("command is required"), nil
	}
	cwd := req.GetString("cwd", "")
	service := req.GetString("service", "")
	sessionID := req.GetString("session_id", "")

	ctx = logging.WithSessionID(ctx, sessionID)
	ctx = logging.WithService(ctx, service)

	scanReq := &schema.ScanRequest{
		Kind:      schema.RequestKindCommand,
		Command:   command,
		Cwd:       cwd,
		Service:   service,
		SessionID: sessionID,
	}
	decision := s.scanner.Scan(scanReq)

	s.record(ctx, scanReq, decision)
	if decision.Denied() {
		s.logger.InfoContext(ctx, "command denied", slog.String("reason", decision.Reason))
	}

	return marshalResult(decision)
}

// handleRequirements lists the credential keys one service requires.
func (s *GuardServer) handleRequirements(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	service, err := req.RequireString("service")
	if err != nil {
		return mcp.NewToolResultError("service is required"), nil
	}

	keys, ok := s.keys.ServiceKeys(service)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("service %q is not registered", service)), nil
	}
	return marshalResult(map[string]any{
		"service": service,
		"keys":    keys,
	})
}

// handleSeal encrypts a value into an at-rest envelope.
func (s *GuardServer) handleSeal(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("value is required"), nil
	}

	env, sealErr := s.keychain.Seal(value)
	if sealErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("seal failed: %v", sealErr)), nil
	}
	return marshalResult(map[string]any{"envelope": env})
}

// handleAudit returns recent decisions.
func (s *GuardServer) handleAudit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.audit == nil {
		return mcp.NewToolResultError("audit log is not enabled"), nil
	}
	limit := req.GetInt("limit", 20)

	entries, err := s.audit.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("audit query failed: %v", err)), nil
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	return marshalResult(map[string]any{"entries": entries})
}

// record appends the decision to the audit log, best-effort.
func (s *GuardServer) record(ctx context.Context, req *schema.ScanRequest, decision schema.Decision) {
	if s.audit == nil {
		return
	}
	err := s.audit.Append(ctx, &audit.Entry{
		SessionID: req.SessionID,
		Service:   req.Service,
		Kind:      req.Kind,
		Command:   req.Command,
		Path:      req.Path,
		Verdict:   decision.Verdict,
		Reason:    decision.Reason,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit append failed", slog.String("error", err.Error()))
	}
}

// marshalResult serializes v as a JSON tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
