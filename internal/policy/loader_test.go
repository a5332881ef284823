package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/credgate/pkg/schema"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadVaultMapping(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, dir, "vault.json", `{
			"mappings": {
				"API_TOKEN": "op://project/api/token",
				"LOG_LEVEL": "debug"
			}
		}`)
		vault, err := loader.LoadVaultMapping(path)
		require.NoError(t, err)
		assert.Equal(t, "op://project/api/token", vault.Mappings["API_TOKEN"])
		assert.Equal(t, "debug", vault.Mappings["LOG_LEVEL"])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.LoadVaultMapping(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeFile(t, dir, "broken.json", `{"mappings":`)
		_, err := loader.LoadVaultMapping(path)
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	})

	t.Run("bad key name", func(t *testing.T) {
		path := writeFile(t, dir, "badkey.json", `{"mappings":{"9BAD-KEY":"x"}}`)
		_, err := loader.LoadVaultMapping(path)
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	})

	t.Run("unknown top-level field", func(t *testing.T) {
		path := writeFile(t, dir, "extra.json", `{"mappings":{},"extra":true}`)
		_, err := loader.LoadVaultMapping(path)
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	})
}

func TestLoadServers(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, dir, "servers.json", `{
			"servers": {
				"tracker": {"keys": ["API_TOKEN", "DB_PASSWORD"]}
			}
		}`)
		keys, err := loader.LoadServers(path)
		require.NoError(t, err)
		got, ok := keys.ServiceKeys("tracker")
		require.True(t, ok)
		assert.Equal(t, []string{"API_TOKEN", "DB_PASSWORD"}, got)
	})

	t.Run("missing file yields empty registry", func(t *testing.T) {
		keys, err := loader.LoadServers(filepath.Join(dir, "nope.json"))
		require.NoError(t, err)
		assert.Empty(t, keys.Services())
	})

	t.Run("schema violation", func(t *testing.T) {
		path := writeFile(t, dir, "badservers.json", `{"servers":{"tracker":{"keys":"API_TOKEN"}}}`)
		_, err := loader.LoadServers(path)
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	})
}

func TestLoadPolicy(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)
	dir := t.TempDir()

	t.Run("valid with rules", func(t *testing.T) {
		path := writeFile(t, dir, "policy.json", `{
			"blocked_basenames": ["service-account.json"],
			"rules": [
				{"name": "no-curl-upload", "expr": "command contains \"curl\" and command contains \"--data\""}
			]
		}`)
		resources, rules, err := loader.LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, 1, rules.Len())

		_, hit := resources.Match("/opt/app/service-account.json")
		assert.True(t, hit)
		_, hit = resources.Match("/home/dev/project/.env")
		assert.True(t, hit, "built-ins survive the merge")
	})

	t.Run("missing file yields built-ins", func(t *testing.T) {
		resources, rules, err := loader.LoadPolicy(filepath.Join(dir, "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, 0, rules.Len())
		_, hit := resources.Match("/home/dev/project/.env")
		assert.True(t, hit)
	})

	t.Run("broken rule expression", func(t *testing.T) {
		path := writeFile(t, dir, "badrule.json", `{"rules":[{"name":"broken","expr":"command contains"}]}`)
		_, _, err := loader.LoadPolicy(path)
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	})

	t.Run("broken blocked pattern", func(t *testing.T) {
		path := writeFile(t, dir, "badpattern.json", `{"blocked_patterns":["([unclosed"]}`)
		_, _, err := loader.LoadPolicy(path)
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	})
}
