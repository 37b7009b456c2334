// Package report renders assessed upgrade candidates as Markdown or HTML documents.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/obentoo/aptaudit/internal/model"
)

// Error variables for rendering errors
var (
	// ErrUnknownFormat is returned for a format other than markdown or html
	ErrUnknownFormat = errors.New("unknown report format")
	// ErrNilReport is returned when there is nothing to render
	ErrNilReport = errors.New("nil report")
)

// Title is the heading of every report
const Title = "Upgrade audit report"

// NoUpgrades is the statement rendered for an empty candidate list
const NoUpgrades = "No upgrades available."

// ParseFormat accepts "md", "markdown" and "html", case-insensitively.
func ParseFormat(s string) (model.Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return model.FormatMarkdown, nil
	case "html", "htm":
		return model.FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q (want md or html)", ErrUnknownFormat, s)
	}
}

// Extension returns the file suffix for a format, dot included.
func Extension(f model.Format) string {
	if f == model.FormatHTML {
		return ".html"
	}
	return ".md"
}

// DefaultOutput returns the default report file name for a format.
func DefaultOutput(f model.Format) string {
	return "upgrade_report" + Extension(f)
}

// Render produces the complete document for r in r.Format.
func Render(r *model.Report) (string, error) {
	if r == nil {
		return "", ErrNilReport
	}
	switch r.Format {
	case model.FormatMarkdown:
		return RenderMarkdown(r), nil
	case model.FormatHTML:
		return RenderHTML(r)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, r.Format)
	}
}

// backendLabel names the provider and model, e.g. "openai (gpt-4o-mini)"
func backendLabel(r *model.Report) string {
	if r.Backend == "" {
		return ""
	}
	if r.Model == "" {
		return r.Backend
	}
	return r.Backend + " (" + r.Model + ")"
}

// breakingLabel is the yes/no shown for the breaking flag
func breakingLabel(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// verdictOf treats an unassessed candidate as unknown
func verdictOf(c model.UpgradeCandidate) model.Verdict {
	if c.Verdict == "" {
		return model.VerdictUnknown
	}
	return c.Verdict
}

// rationaleOf never returns an empty explanation
func rationaleOf(c model.UpgradeCandidate) string {
	if r := strings.TrimSpace(c.Rationale); r != "" {
		return r
	}
	return "No rationale provided."
}
