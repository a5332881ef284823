package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rendis/credgate/pkg/schema"
)

// ProtectedResources is the immutable registry of files that must never be
// read, copied, or redirected by an intercepted command. All membership tests
// run against the resolved absolute path, never the raw string, so traversal
// and alias spellings cannot bypass it.
type ProtectedResources struct {
	basenames map[string]struct{}
	suffixes  []string
	patterns  []*regexp.Regexp
}

// builtinBasenames are exact file names denied regardless of directory.
var builtinBasenames = []string{
	"credentials.json",
	"secrets.json",
}

// builtinSuffixes are path endings denied wherever the project lives.
var builtinSuffixes = []string{
	"/.credgate/master.key",
	"/.credgate/vault.json",
}

// builtinPatterns match whole resolved paths. The env-file pattern covers
// .env plus variants like .env.local and .env.production.
var builtinPatterns = []string{
	`(^|/)\.env([._-][A-Za-z0-9._-]+)?$`,
	`(^|/)\.ssh/id_[a-z0-9_]+$`,
}

// NewProtectedResources builds a registry from the built-in rules plus any
// additions from the policy file. Additions are additive only.
func NewProtectedResources(extra *schema.PolicyFile) (ProtectedResources, error) {
	r := ProtectedResources{basenames: make(map[string]struct{})}
	for _, b := range builtinBasenames {
		r.basenames[b] = struct{}{}
	}
	r.suffixes = append(r.suffixes, builtinSuffixes...)
	for _, p := range builtinPatterns {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	if extra != nil {
		for _, b := range extra.BlockedBasenames {
			r.basenames[b] = struct{}{}
		}
		r.suffixes = append(r.suffixes, extra.BlockedSuffixes...)
		for _, p := range extra.BlockedPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return ProtectedResources{}, schema.NewErrorf(schema.ErrCodeValidation,
					"invalid blocked_patterns entry %q: %v", p, err).WithCause(err)
			}
			r.patterns = append(r.patterns, re)
		}
	}
	return r, nil
}

// DefaultProtectedResources returns the registry with only the built-in rules.
func DefaultProtectedResources() ProtectedResources {
	r, err := NewProtectedResources(nil)
	if err != nil {
		panic(err) // built-ins are compile-time constants
	}
	return r
}

// Match tests a resolved absolute path against the registry. On a hit it
// returns a reason naming the rule that matched.
func (r ProtectedResources) Match(absPath string) (string, bool) {
	base := absPath
	if i := strings.LastIndexByte(absPath, '/'); i >= 0 {
		base = absPath[i+1:]
	}
	if _, ok := r.basenames[base]; ok {
		return fmt.Sprintf("protected file name %q", base), true
	}
	for _, sfx := range r.suffixes {
		if strings.HasSuffix(absPath, sfx) {
			return fmt.Sprintf("protected path suffix %q", sfx), true
		}
	}
	for _, re := range r.patterns {
		if re.MatchString(absPath) {
			return fmt.Sprintf("protected path pattern %q", re.String()), true
		}
	}
	return "", false
}

// CredentialKeys maps each service name to the ordered credential key names
// it requires. It scopes both which keys the resolver populates and which
// environment-variable names the scanner treats as sensitive.
type CredentialKeys struct {
	servers map[string][]string
}

// NewCredentialKeys builds the registry from the servers file contents.
func NewCredentialKeys(f *schema.ServersFile) CredentialKeys {
	servers := make(map[string][]string)
	if f != nil {
		for name, entry := range f.Servers {
			keys := make([]string, len(entry.Keys))
			copy(keys, entry.Keys)
			servers[name] = keys
		}
	}
	return CredentialKeys{servers: servers}
}

// ServiceKeys returns the credential key names one service requires.
func (c CredentialKeys) ServiceKeys(service string) ([]string, bool) {
	keys, ok := c.servers[service]
	if !ok {
		return nil, false
	}
	out := make([]string, len(keys))
	copy(out, keys)
	return out, true
}

// AllKeys returns the deduplicated, sorted union of every registered key name.
// This is the sensitivity set for the command scanner.
func (c CredentialKeys) AllKeys() []string {
	seen := make(map[string]struct{})
	for _, keys := range c.servers {
		for _, k := range keys {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Services returns the sorted list of registered service names.
func (c CredentialKeys) Services() []string {
	out := make([]string, 0, len(c.servers))
	for name := range c.servers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
