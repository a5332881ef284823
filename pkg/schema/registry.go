package schema

// VaultMappingFile is the on-disk shape of the vault mapping document.
// Values are either an indirect vault reference (recognized by the external
// secret CLI, e.g. "op://vault/item/field") or a literal non-secret value.
// This core only ever reads it.
type VaultMappingFile struct {
	Mappings map[string]string `json:"mappings"`
}

// ServerEntry lists the credential key names one service requires.
type ServerEntry struct {
	Keys []string `json:"keys"`
}

// ServersFile is the on-disk shape of the protected-actions registry.
type ServersFile struct {
	Servers map[string]ServerEntry `json:"servers"`
}

// PolicyRule is an operator-defined deny rule evaluated against each command
// request. The expression sees {command, paths, service} and denies when it
// evaluates to true.
type PolicyRule struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// PolicyFile extends the built-in protected-resource registry without
// recompilation. All entries are additive; built-ins cannot be removed.
type PolicyFile struct {
	BlockedBasenames []string     `json:"blocked_basenames,omitempty"`
	BlockedSuffixes  []string     `json:"blocked_suffixes,omitempty"`
	BlockedPatterns  []string     `json:"blocked_patterns,omitempty"`
	Rules            []PolicyRule `json:"rules,omitempty"`
}

// JSON Schemas for the three registry files. Embedded as constants to avoid
// filesystem dependencies.
const (
	VaultMappingSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://credgate.dev/schemas/vault-mapping.json",
  "type": "object",
  "required": ["mappings"],
  "properties": {
    "mappings": {
      "type": "object",
      "additionalProperties": {"type": "string", "minLength": 1},
      "propertyNames": {"pattern": "^[A-Za-z_][A-Za-z0-9_]*$"}
    }
  },
  "additionalProperties": false
}`

	ServersSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://credgate.dev/schemas/servers.json",
  "type": "object",
  "required": ["servers"],
  "properties": {
    "servers": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["keys"],
        "properties": {
          "keys": {
            "type": "array",
            "items": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*$"}
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

	PolicySchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://credgate.dev/schemas/policy.json",
  "type": "object",
  "properties": {
    "blocked_basenames": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "blocked_suffixes": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "blocked_patterns": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "expr"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "expr": {"type": "string", "minLength": 1}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
)
