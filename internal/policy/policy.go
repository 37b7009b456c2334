// Package policy loads the per-package audit policy.
package policy

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultPath is where the system-wide policy lives
const DefaultPath = "/etc/aptaudit/policy.toml"

// Error variables for policy errors
var (
	// ErrPolicyUnreadable is returned when an existing policy file cannot be read
	ErrPolicyUnreadable = errors.New("policy file is unreadable")
	// ErrPolicyInvalid is returned when the policy is not valid TOML or fails validation
	ErrPolicyInvalid = errors.New("invalid policy")
	// ErrConfigNotAbsolute is returned when a pinned config path is relative
	ErrConfigNotAbsolute = errors.New("config path must be absolute")
)

// PackageRule is the policy for a single package.
type PackageRule struct {
	// Ignore drops the package from the audit
	Ignore bool `toml:"ignore,omitempty"`
	// Config pins the configuration file shown to the backend
	Config string `toml:"config,omitempty"`
	// Hint is extra context appended to the prompt
	Hint string `toml:"hint,omitempty"`
}

// Policy maps Debian package names to rules.
type Policy struct {
	Packages map[string]PackageRule
}

// policyFile matches the TOML layout where each [package] table is a top-level key
type policyFile map[string]PackageRule

// Empty returns a policy without rules.
func Empty() *Policy {
	return &Policy{Packages: make(map[string]PackageRule)}
}

// Load reads the policy at path. A missing file yields an empty policy.
func Load(path string) (*Policy, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPolicyUnreadable, path, err)
	}

	return Parse(data)
}

// Parse decodes and validates policy TOML.
func Parse(data []byte) (*Policy, error) {
	var file policyFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicyInvalid, err)
	}

	p := Empty()
	for pkg, rule := range file {
		p.Packages[pkg] = rule
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks every rule. Returns the first error in package name order.
func (p *Policy) Validate() error {
	for _, pkg := range p.Names() {
		rule := p.Packages[pkg]
		if rule.Config != "" && rule.Config[0] != '/' {
			return fmt.Errorf("%w: package %s: %w: %q", ErrPolicyInvalid, pkg, ErrConfigNotAbsolute, rule.Config)
		}
	}
	return nil
}

// Names returns the packages with a rule, sorted.
func (p *Policy) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Packages))
	for pkg := range p.Packages {
		names = append(names, pkg)
	}
	sort.Strings(names)
	return names
}

// Rule returns the rule for pkg; the zero rule when none is set.
func (p *Policy) Rule(pkg string) PackageRule {
	if p == nil {
		return PackageRule{}
	}
	return p.Packages[pkg]
}

// Ignored reports whether pkg is excluded from the audit.
func (p *Policy) Ignored(pkg string) bool {
	return p.Rule(pkg).Ignore
}
