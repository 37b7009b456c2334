package model

import "time"

// Format selects the rendered document type.
type Format string

// Report formats
const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Report is the ordered list of assessed candidates handed to a renderer.
type Report struct {
	Candidates  []UpgradeCandidate
	Format      Format
	Host        string
	GeneratedAt time.Time
	// Backend and Model name the assessment provider
	Backend string
	Model   string
}

// Summary holds verdict counts for a report.
type Summary struct {
	Total    int
	Safe     int
	Risky    int
	Unknown  int
	Breaking int
}

// Summary counts candidates per verdict.
// Candidates without a verdict are counted as unknown.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Candidates)}
	for _, c := range r.Candidates {
		switch c.Verdict {
		case VerdictSafe:
			s.Safe++
		case VerdictRisky:
			s.Risky++
		default:
			s.Unknown++
		}
		if c.Breaking {
			s.Breaking++
		}
	}
	return s
}
