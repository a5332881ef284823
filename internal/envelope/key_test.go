package envelope

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyCreatesProtectedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".credgate", "master.key")

	key, err := GenerateKey(path)
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	// Single base64 line.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(string(data[:len(data)-1]))
	require.NoError(t, err)
	assert.Equal(t, key, decoded)
}

func TestGenerateKeyRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	_, err := GenerateKey(path)
	require.NoError(t, err)

	_, err = GenerateKey(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoadOrCreateKeyIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")

	k1, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	k2, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestLoadKeyRejectsBadContents(t *testing.T) {
	dir := t.TempDir()

	notB64 := filepath.Join(dir, "bad.key")
	require.NoError(t, os.WriteFile(notB64, []byte("!!not base64!!\n"), 0o600))
	_, err := LoadKey(notB64)
	require.Error(t, err)

	short := filepath.Join(dir, "short.key")
	require.NoError(t, os.WriteFile(short, []byte(base64.StdEncoding.EncodeToString([]byte("tiny"))+"\n"), 0o600))
	_, err = LoadKey(short)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 32")
}

func TestKeychainSealOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")
	kc := NewKeychain(path)

	env, err := kc.Seal("credential-value")
	require.NoError(t, err)

	got, err := NewKeychain(path).Open(env)
	require.NoError(t, err)
	assert.Equal(t, "credential-value", got)
}

func TestKeychainOpenNeverGeneratesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.key")

	_, err := NewKeychain(path).Open("ENC[AAAAAAAAAAAAAAAA:AAAAAAAAAAAAAAAAAAAAAA==:AA==]")
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "Open must not create a key file")
}
