package apt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultConfigRoots are the directories probed for package configuration
var DefaultConfigRoots = []string{"/etc", "/usr/local/etc"}

// MaxConfigSize caps the configuration content attached to a prompt
const MaxConfigSize = 16 * 1024

// ConfigLocator finds the configuration file or directory a package most likely uses.
type ConfigLocator struct {
	roots []string
}

// NewConfigLocator creates a locator over roots; no roots selects DefaultConfigRoots.
func NewConfigLocator(roots ...string) *ConfigLocator {
	if len(roots) == 0 {
		roots = DefaultConfigRoots
	}
	return &ConfigLocator{roots: roots}
}

// Find returns the configuration path for pkg, or "" when none exists.
// Exact names (<root>/<pkg>, <root>/<pkg>.conf) win over entries that merely
// contain the package name.
func (l *ConfigLocator) Find(pkg string) string {
	if pkg == "" {
		return ""
	}

	for _, root := range l.roots {
		for _, name := range []string{pkg, pkg + ".conf"} {
			path := filepath.Join(root, name)
			if exists(path) {
				return path
			}
		}
	}

	for _, root := range l.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		var matches []string
		for _, e := range entries {
			if strings.Contains(e.Name(), pkg) {
				matches = append(matches, filepath.Join(root, e.Name()))
			}
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0]
		}
	}

	return ""
}

// ReadConfig returns the content of a regular configuration file.
// Directories, unreadable files and files larger than MaxConfigSize yield "".
func ReadConfig(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > MaxConfigSize {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// exists checks if a file or directory exists using os.Stat
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
