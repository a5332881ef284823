package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/credgate/pkg/schema"
)

// Loader reads and validates the registry files. Each Load* call re-reads the
// file from disk: the registries are eventually-consistent configuration
// shared by many short-lived processes, so nothing is cached across calls.
type Loader struct {
	vaultSchema   *jsonschema.Schema
	serversSchema *jsonschema.Schema
	policySchema  *jsonschema.Schema
}

// NewLoader compiles the embedded JSON Schemas for the three registry files.
func NewLoader() (*Loader, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	docs := map[string]string{
		"https://credgate.dev/schemas/vault-mapping.json": schema.VaultMappingSchemaJSON,
		"https://credgate.dev/schemas/servers.json":       schema.ServersSchemaJSON,
		"https://credgate.dev/schemas/policy.json":        schema.PolicySchemaJSON,
	}
	for url, raw := range docs {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", url, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", url, err)
		}
	}

	l := &Loader{}
	var err error
	if l.vaultSchema, err = c.Compile("https://credgate.dev/schemas/vault-mapping.json"); err != nil {
		return nil, fmt.Errorf("compile vault-mapping schema: %w", err)
	}
	if l.serversSchema, err = c.Compile("https://credgate.dev/schemas/servers.json"); err != nil {
		return nil, fmt.Errorf("compile servers schema: %w", err)
	}
	if l.policySchema, err = c.Compile("https://credgate.dev/schemas/policy.json"); err != nil {
		return nil, fmt.Errorf("compile policy schema: %w", err)
	}
	return l, nil
}

// LoadVaultMapping reads the vault mapping document. The file is required for
// resolution; a missing file yields ErrCodeNotFound.
func (l *Loader) LoadVaultMapping(path string) (*schema.VaultMappingFile, error) {
	var out schema.VaultMappingFile
	if err := l.loadValidated(path, l.vaultSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadServers reads the protected-actions registry. A missing file yields an
// empty registry: nothing is sensitive until a service is registered.
func (l *Loader) LoadServers(path string) (CredentialKeys, error) {
	var out schema.ServersFile
	err := l.loadValidated(path, l.serversSchema, &out)
	if err != nil {
		var cerr *schema.CredgateError
		if errors.As(err, &cerr) && cerr.Code == schema.ErrCodeNotFound {
			return NewCredentialKeys(nil), nil
		}
		return CredentialKeys{}, err
	}
	return NewCredentialKeys(&out), nil
}

// LoadPolicy reads the optional policy file and merges it over the built-in
// protected-resource rules. A missing file yields the built-ins alone.
func (l *Loader) LoadPolicy(path string) (ProtectedResources, *RuleSet, error) {
	var out schema.PolicyFile
	err := l.loadValidated(path, l.policySchema, &out)
	if err != nil {
		var cerr *schema.CredgateError
		if errors.As(err, &cerr) && cerr.Code == schema.ErrCodeNotFound {
			return DefaultProtectedResources(), NewRuleSet(nil), nil
		}
		return ProtectedResources{}, nil, err
	}
	resources, err := NewProtectedResources(&out)
	if err != nil {
		return ProtectedResources{}, nil, err
	}
	rules, err := CompileRules(out.Rules)
	if err != nil {
		return ProtectedResources{}, nil, err
	}
	return resources, rules, nil
}

// loadValidated reads a whole file, validates it against the compiled schema,
// then unmarshals into out.
func (l *Loader) loadValidated(path string, s *jsonschema.Schema, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return schema.NewErrorf(schema.ErrCodeNotFound, "registry file %s not found", path).WithCause(err)
		}
		return schema.NewErrorf(schema.ErrCodeValidation, "read %s: %v", path, err).WithCause(err)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s is not valid JSON: %v", path, err).WithCause(err)
	}
	if err := s.Validate(doc); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s failed schema validation: %v", path, err).WithCause(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "decode %s: %v", path, err).WithCause(err)
	}
	return nil
}
