package audit

import (
	"context"

	"github.com/obentoo/aptaudit/internal/apt"
	"github.com/obentoo/aptaudit/internal/assess"
	"github.com/obentoo/aptaudit/internal/model"
	"github.com/obentoo/aptaudit/internal/policy"
)

// ContextBuilder gathers the changelog, configuration and operator hint for a candidate.
// Nil fields disable the matching lookup.
type ContextBuilder struct {
	changelogs *apt.ChangelogFetcher
	configs    *apt.ConfigLocator
	policy     *policy.Policy
}

// NewContextBuilder creates a builder. Any argument may be nil.
func NewContextBuilder(changelogs *apt.ChangelogFetcher, configs *apt.ConfigLocator, pol *policy.Policy) *ContextBuilder {
	return &ContextBuilder{changelogs: changelogs, configs: configs, policy: pol}
}

// Build returns the prompt input for c and records the configuration path on it.
// A policy config path wins over the locator.
func (b *ContextBuilder) Build(ctx context.Context, c *model.UpgradeCandidate) assess.PromptInput {
	rule := b.policy.Rule(c.Name)
	in := assess.PromptInput{Hint: rule.Hint}

	path := rule.Config
	if path == "" && b.configs != nil {
		path = b.configs.Find(c.Name)
	}
	if path != "" {
		c.ConfigPath = path
		in.ConfigContent = apt.ReadConfig(path)
	}

	if b.changelogs != nil {
		in.Changelog = b.changelogs.Fetch(ctx, c.Name)
	}

	return in
}

// Ensure Build matches the assessor hook
var _ assess.ContextFunc = (*ContextBuilder)(nil).Build
