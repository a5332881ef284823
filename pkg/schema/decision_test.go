package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScanRequest(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid command", `{"kind":"command","command":"ls -la"}`, false},
		{"valid file read", `{"kind":"file_read","path":".env"}`, false},
		{"valid file write", `{"kind":"file_write","path":"out.txt","cwd":"/tmp"}`, false},
		{"empty input", ``, true},
		{"whitespace only", "  \n\t", true},
		{"not json", `cat .env`, true},
		{"missing kind", `{"command":"ls"}`, true},
		{"unknown kind", `{"kind":"network","command":"curl"}`, true},
		{"command without command", `{"kind":"command"}`, true},
		{"file read without path", `{"kind":"file_read"}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseScanRequest([]byte(tc.input))
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, IsCode(err, ErrCodeMalformedInput))
				assert.Nil(t, req)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, req)
		})
	}
}

func TestParseScanRequestFields(t *testing.T) {
	req, err := ParseScanRequest([]byte(`{
		"kind": "command",
		"command": "cat notes.txt",
		"cwd": "/home/dev/project",
		"service": "tracker",
		"session_id": "abc-123"
	}`))
	require.NoError(t, err)
	assert.Equal(t, RequestKindCommand, req.Kind)
	assert.Equal(t, "cat notes.txt", req.Command)
	assert.Equal(t, "/home/dev/project", req.Cwd)
	assert.Equal(t, "tracker", req.Service)
	assert.Equal(t, "abc-123", req.SessionID)
}

func TestDecisionHelpers(t *testing.T) {
	assert.False(t, Allow().Denied())
	assert.True(t, Deny("blocked").Denied())

	d := Denyf("rule %q fired", "no-curl-upload")
	assert.True(t, d.Denied())
	assert.Equal(t, `rule "no-curl-upload" fired`, d.Reason)
}
