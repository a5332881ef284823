package shellscan

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rendis/credgate/internal/policy"
	"github.com/rendis/credgate/pkg/schema"
)

// fileReadCommands read file contents to stdout (or a pager).
var fileReadCommands = map[string]struct{}{
	"cat":     {},
	"head":    {},
	"tail":    {},
	"less":    {},
	"more":    {},
	"strings": {},
	"base64":  {},
	"xxd":     {},
}

// fileCopyCommands move file contents somewhere else wholesale.
var fileCopyCommands = map[string]struct{}{
	"cp": {},
	"mv": {},
}

// Scanner decides whether one intercepted operation may proceed. It is a pure
// function of (request, registries, rules): no state survives a call, so one
// Scanner instance can serve any number of requests.
type Scanner struct {
	resources policy.ProtectedResources
	rules     *policy.RuleSet
	keyRefs   []keyRef
}

type keyRef struct {
	name string
	re   *regexp.Regexp
}

// New builds a Scanner over the loaded registries. Sensitive variable names
// come from the union of every registered service's credential keys, so a
// key protected for one service is protected everywhere in the project.
func New(resources policy.ProtectedResources, keys policy.CredentialKeys, rules *policy.RuleSet) *Scanner {
	s := &Scanner{resources: resources, rules: rules}
	for _, name := range keys.AllKeys() {
		q := regexp.QuoteMeta(name)
		s.keyRefs = append(s.keyRefs, keyRef{
			name: name,
			re:   regexp.MustCompile(`\$(` + q + `\b|\{` + q + `\})`),
		})
	}
	return s
}

// Scan returns the decision for one request. Deny reasons name the rule or
// reference that fired without ever echoing a protected value.
func (s *Scanner) Scan(req *schema.ScanRequest) schema.Decision {
	switch req.Kind {
	case schema.RequestKindFileRead, schema.RequestKindFileWrite:
		return s.scanPath(req.Path, req.Cwd)
	case schema.RequestKindCommand:
		return s.scanCommand(req)
	default:
		// ParseScanRequest rejects unknown kinds; double-check fail-closed.
		return schema.Denyf("unknown request kind %q", req.Kind)
	}
}

// scanPath checks a single file path against the protected-resource registry.
func (s *Scanner) scanPath(raw, cwd string) schema.Decision {
	abs, ok := resolveAbs(raw, cwd)
	if !ok {
		return schema.Denyf("path %q cannot be resolved", raw)
	}
	if reason, hit := s.resources.Match(abs); hit {
		return schema.Denyf("%s: %s", reason, abs)
	}
	return schema.Allow()
}

// scanCommand tokenizes the whole command line, splits it into sub-command
// groups, and checks every candidate path plus the whole-string credential
// signals. Any single hit denies.
func (s *Scanner) scanCommand(req *schema.ScanRequest) schema.Decision {
	tokens := Tokenize(req.Command)
	groups := SplitGroups(tokens)

	var resolved []string
	for _, group := range groups {
		if d := s.checkEnvDump(group); d.Denied() {
			return d
		}
		for _, raw := range candidatePaths(group) {
			abs, ok := resolveAbs(raw, req.Cwd)
			if !ok {
				return schema.Denyf("path %q cannot be resolved", raw)
			}
			resolved = append(resolved, abs)
			if reason, hit := s.resources.Match(abs); hit {
				return schema.Denyf("%s: %s", reason, abs)
			}
		}
	}

	// Credential key references are scanned over the full original string:
	// an expansion leaks the value wherever it appears.
	for _, ref := range s.keyRefs {
		if ref.re.MatchString(req.Command) {
			return schema.Denyf("command references protected credential %s", ref.name)
		}
	}

	if name, denied := s.rules.Evaluate(req.Command, resolved, req.Service); denied {
		return schema.Denyf("denied by policy rule %q", name)
	}
	return schema.Allow()
}

// checkEnvDump denies full-environment dumps. Working on the token stream
// rather than the raw string keeps filenames like ".env" from false-firing:
// only a command word can match here.
func (s *Scanner) checkEnvDump(group []Token) schema.Decision {
	cmd, args := commandAndArgs(group)
	if cmd == "" {
		return schema.Allow()
	}
	switch filepath.Base(cmd) {
	case "env":
		return schema.Deny("full environment dump via 'env'")
	case "printenv":
		if len(args) == 0 {
			return schema.Deny("full environment dump via 'printenv'")
		}
		for _, ref := range s.keyRefs {
			for _, a := range args {
				if a == ref.name {
					return schema.Denyf("command references protected credential %s", ref.name)
				}
			}
		}
	case "export":
		for _, a := range args {
			if a == "-p" {
				return schema.Deny("full environment dump via 'export -p'")
			}
		}
	}
	return schema.Allow()
}

// commandAndArgs returns the first word of a group and the word arguments
// after it, excluding redirection targets.
func commandAndArgs(group []Token) (string, []string) {
	cmd := ""
	var args []string
	skipNext := false
	for _, tok := range group {
		switch tok.Kind {
		case TokenRedirectIn, TokenRedirectOut, TokenRedirectAppend:
			skipNext = true
		case TokenWord:
			if skipNext {
				skipNext = false
				continue
			}
			if cmd == "" {
				cmd = tok.Text
			} else {
				args = append(args, tok.Text)
			}
		}
	}
	return cmd, args
}

// candidatePaths extracts every token in a group that may name a file the
// command would read or copy. Input-redirection targets count for any
// command; positional arguments count when the command is a known reader or
// copier. Flag detection errs toward over-inclusion: it is safer to resolve
// a non-path token than to miss a real path.
func candidatePaths(group []Token) []string {
	var paths []string

	// < can feed a protected file to a command outside the known sets.
	for i, tok := range group {
		if tok.Kind == TokenRedirectIn && i+1 < len(group) && group[i+1].Kind == TokenWord {
			paths = append(paths, group[i+1].Text)
		}
	}

	cmd, args := commandAndArgs(group)
	if cmd == "" {
		return paths
	}
	base := filepath.Base(cmd)
	_, reads := fileReadCommands[base]
	_, copies := fileCopyCommands[base]
	if !reads && !copies {
		return paths
	}
	for _, a := range args {
		if isFlag(a) {
			continue
		}
		paths = append(paths, a)
	}
	return paths
}

// isFlag reports whether a token is an option rather than a path candidate.
// A token that looks like a relative path is never a flag.
func isFlag(tok string) bool {
	if strings.HasPrefix(tok, "./") || strings.HasPrefix(tok, "../") {
		return false
	}
	return strings.HasPrefix(tok, "-")
}
