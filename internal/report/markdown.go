package report

import (
	"fmt"
	"strings"

	"github.com/obentoo/aptaudit/internal/model"
)

// RenderMarkdown renders r as a Markdown document.
func RenderMarkdown(r *model.Report) string {
	var b strings.Builder

	b.WriteString("# " + Title + "\n\n")
	writeMarkdownMeta(&b, r)

	if len(r.Candidates) == 0 {
		b.WriteString(NoUpgrades + "\n")
		return b.String()
	}

	s := r.Summary()
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Candidates: %d\n", s.Total)
	fmt.Fprintf(&b, "- Risky: %d\n", s.Risky)
	fmt.Fprintf(&b, "- Unknown: %d\n", s.Unknown)
	fmt.Fprintf(&b, "- Safe: %d\n", s.Safe)
	fmt.Fprintf(&b, "- With breaking changes: %d\n\n", s.Breaking)

	for _, c := range r.Candidates {
		writeMarkdownCandidate(&b, c)
	}

	return b.String()
}

func writeMarkdownMeta(b *strings.Builder, r *model.Report) {
	var parts []string
	if r.Host != "" {
		parts = append(parts, "Host: `"+r.Host+"`")
	}
	if !r.GeneratedAt.IsZero() {
		parts = append(parts, "Generated: "+r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if backend := backendLabel(r); backend != "" {
		parts = append(parts, "Backend: "+backend)
	}
	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, " | ") + "\n\n")
	}
}

func writeMarkdownCandidate(b *strings.Builder, c model.UpgradeCandidate) {
	fmt.Fprintf(b, "## %s\n\n", c.Name)

	version := fmt.Sprintf("`%s` -> `%s`", c.InstalledVersion, c.CandidateVersion)
	if c.ChangeKind != "" {
		version += fmt.Sprintf(" (%s)", c.ChangeKind)
	}
	b.WriteString("- Version: " + version + "\n")
	if c.Origin != "" {
		b.WriteString("- Origin: " + c.Origin + "\n")
	}
	fmt.Fprintf(b, "- Verdict: **%s**\n", verdictOf(c))
	b.WriteString("- Breaking changes: " + breakingLabel(c.Breaking) + "\n")
	if c.ConfigPath != "" {
		b.WriteString("- Configuration: `" + c.ConfigPath + "`\n")
	}
	b.WriteString("\n")

	for _, line := range strings.Split(rationaleOf(c), "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			b.WriteString(">\n")
			continue
		}
		b.WriteString("> " + line + "\n")
	}
	b.WriteString("\n")
}
