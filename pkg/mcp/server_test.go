package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/credgate/internal/policy"
	"github.com/rendis/credgate/internal/shellscan"
)

func testDeps() GuardServerDeps {
	keys := policy.NewCredentialKeys(nil)
	return GuardServerDeps{
		Scanner: shellscan.New(policy.DefaultProtectedResources(), keys, policy.NewRuleSet(nil)),
		Keys:    keys,
	}
}

func TestNewGuardServer(t *testing.T) {
	s := NewGuardServer(testDeps())
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
}

func TestToolRegistration(t *testing.T) {
	s := NewGuardServer(testDeps())

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 4)

	expectedTools := []string{
		"guard.scan",
		"guard.requirements",
		"guard.seal",
		"guard.audit",
	}
	for _, name := range expectedTools {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"scan", "guard.scan", "Check a shell command against the credential protection policy before running it"},
		{"requirements", "guard.requirements", "List the credential key names a registered service requires"},
		{"seal", "guard.seal", "Encrypt a value into an envelope safe to store in configuration files"},
		{"audit", "guard.audit", "List recent protection decisions, newest first"},
	}

	s := NewGuardServer(testDeps())

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}
