package shellscan

import (
	"os"
	"path/filepath"
	"strings"
)

// resolveAbs normalizes a candidate path to the absolute form the registry is
// keyed on. Relative paths resolve against cwd (falling back to the process
// working directory), ~ expands to the user home, and symlinks are resolved
// on the longest existing ancestor so aliased directories cannot dodge a
// suffix or pattern rule. Returns false only for paths that cannot be
// interpreted at all.
func resolveAbs(raw, cwd string) (string, bool) {
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", false
	}

	path := raw
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	if !filepath.IsAbs(path) {
		base := cwd
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", false
			}
			base = wd
		}
		path = filepath.Join(base, path)
	}
	abs := filepath.Clean(path)

	// Fast path when the target exists.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, true
	}
	return resolveAncestor(abs), true
}

// resolveAncestor walks up from path until it finds an existing directory,
// resolves symlinks on that ancestor, and re-appends the unresolved suffix.
func resolveAncestor(path string) string {
	dir := path
	for range 256 { // bound the walk on pathological nesting
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached root
		}
		resolved, err := filepath.EvalSymlinks(parent)
		if err == nil {
			rel, err := filepath.Rel(parent, path)
			if err != nil {
				return path
			}
			return filepath.Join(resolved, rel)
		}
		dir = parent
	}
	return path
}
