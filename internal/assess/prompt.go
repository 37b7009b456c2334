package assess

import (
	"fmt"
	"strings"

	"github.com/obentoo/aptaudit/internal/model"
)

// PromptInput is everything sent to the backend about one candidate.
type PromptInput struct {
	Candidate     model.UpgradeCandidate
	Changelog     string
	ConfigContent string
	Hint          string
}

// BuildPrompt renders the question asked for one upgrade candidate.
// The answer is expected to end with BREAKING and VERDICT marker lines.
func BuildPrompt(in PromptInput) string {
	c := in.Candidate
	var b strings.Builder

	fmt.Fprintf(&b, "We are about to upgrade the Debian package %s from version %s to version %s",
		c.Name, c.InstalledVersion, c.CandidateVersion)
	if c.Origin != "" {
		fmt.Fprintf(&b, " (from %s)", c.Origin)
	}
	b.WriteString(".\n")
	if c.ChangeKind != "" {
		fmt.Fprintf(&b, "Version change: %s.\n", c.ChangeKind)
	}

	if changelog := strings.TrimSpace(in.Changelog); changelog != "" {
		b.WriteString("\nChangelog of the new version:\n```\n")
		b.WriteString(changelog)
		b.WriteString("\n```\n")
	} else {
		b.WriteString("\nNo changelog is available; rely on what you know about this package.\n")
	}

	b.WriteString("\nSay whether this upgrade introduces breaking changes.")
	if c.ConfigPath != "" {
		fmt.Fprintf(&b, " If it does, check whether the current configuration at %s is still compatible.", c.ConfigPath)
	}
	b.WriteString("\n")

	if content := strings.TrimSpace(in.ConfigContent); content != "" {
		b.WriteString("\nCurrent configuration:\n```\n")
		b.WriteString(content)
		b.WriteString("\n```\n")
	}

	if hint := strings.TrimSpace(in.Hint); hint != "" {
		fmt.Fprintf(&b, "\nOperator note: %s\n", hint)
	}

	b.WriteString("\nSummarise your findings in a few lines, then end your answer with exactly these two lines:\n")
	b.WriteString("BREAKING: yes or no\n")
	b.WriteString("VERDICT: SAFE or RISKY\n")

	return b.String()
}
