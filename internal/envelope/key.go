package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rendis/credgate/pkg/schema"
)

// KeySize is the symmetric key length in bytes (AES-256).
const KeySize = 32

// LoadKey reads the key file: a single base64 line, owner-only permissions.
func LoadKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "key file %s not found", path).WithCause(err)
		}
		return nil, schema.NewErrorf(schema.ErrCodeKeyFile, "read key file %s: %v", path, err).WithCause(err)
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeKeyFile, "key file %s is not valid base64: %v", path, err).WithCause(err)
	}
	if len(key) != KeySize {
		return nil, schema.NewErrorf(schema.ErrCodeKeyFile,
			"key file %s holds %d bytes, want %d", path, len(key), KeySize)
	}
	return key, nil
}

// GenerateKey creates a fresh 256-bit key and writes it to path with 0600
// permissions via a temp file plus atomic rename, so a concurrent reader can
// never observe a partial key. It refuses to overwrite an existing key:
// regeneration invalidates every envelope ever produced and is an explicit
// operator action.
func GenerateKey(path string) ([]byte, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, schema.NewErrorf(schema.ErrCodeKeyFile,
			"key file %s already exists; remove it first to rotate (this invalidates all existing envelopes)", path)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeKeyFile, "generate key material: %v", err).WithCause(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeKeyFile, "create key directory: %v", err).WithCause(err)
	}
	encoded := base64.StdEncoding.EncodeToString(key) + "\n"
	if err := writeFileAtomic(path, []byte(encoded), 0o600); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeKeyFile, "write key file %s: %v", path, err).WithCause(err)
	}
	return key, nil
}

// LoadOrCreateKey loads the key file, generating it on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := LoadKey(path)
	if err == nil {
		return key, nil
	}
	var cerr *schema.CredgateError
	if errors.As(err, &cerr) && cerr.Code == schema.ErrCodeNotFound {
		return GenerateKey(path)
	}
	return nil, err
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
