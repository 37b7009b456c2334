package assess

import (
	"regexp"
	"strings"

	"github.com/obentoo/aptaudit/internal/model"
)

var (
	// verdictLineRegex matches "VERDICT: X" with optional markdown emphasis around either part
	verdictLineRegex = regexp.MustCompile(`(?i)^[\s*_#>-]*verdict[*_]*\s*:\s*[*_]*\s*([a-z ]+?)\s*[*_.!]*\s*$`)
	// breakingLineRegex matches "BREAKING: yes|no"
	breakingLineRegex = regexp.MustCompile(`(?i)^[\s*_#>-]*breaking(?: changes?)?[*_]*\s*:\s*[*_]*\s*(yes|no|true|false)\b`)
	// noBreakingRegex matches phrases denying breaking changes
	noBreakingRegex = regexp.MustCompile(`(?i)\b(?:no|not|without|none of the|zero|any)\s+(?:\w+\s+)?breaking\b|\bnon-breaking\b`)
)

// Classification is the interpretation of a backend answer.
type Classification struct {
	Verdict   model.Verdict
	Breaking  bool
	Rationale string
}

// Classify turns a free-text answer into a verdict.
//
// The last "VERDICT:" line decides when present: SAFE is safe; RISKY, NOT SAFE
// and UNSAFE are risky. Without one, the last non-empty line is read: "not safe",
// "unsafe" or "risky" make it risky, otherwise "safe" makes it safe. Anything
// else is unknown.
//
// Breaking follows a "BREAKING: yes|no" line, or, without one, any mention of
// "breaking" that is not denied ("no breaking changes").
func Classify(text string) Classification {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	out := Classification{Verdict: model.VerdictUnknown}
	verdictFound := false
	breakingFound := false

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !verdictFound {
			if m := verdictLineRegex.FindStringSubmatch(line); m != nil {
				if v := verdictWord(m[1]); v != model.VerdictUnknown {
					out.Verdict = v
					verdictFound = true
				}
			}
		}
		if !breakingFound {
			if m := breakingLineRegex.FindStringSubmatch(line); m != nil {
				w := strings.ToLower(m[1])
				out.Breaking = w == "yes" || w == "true"
				breakingFound = true
			}
		}
	}

	if !verdictFound {
		out.Verdict = lastLineVerdict(lines)
	}

	if !breakingFound {
		out.Breaking = mentionsBreaking(text)
	}

	out.Rationale = rationale(lines)
	if out.Rationale == "" {
		out.Rationale = strings.TrimSpace(text)
	}
	return out
}

// verdictWord maps the word after "VERDICT:"
func verdictWord(w string) model.Verdict {
	return model.ParseVerdict(strings.Join(strings.Fields(w), " "))
}

// lastLineVerdict applies the fallback rule to the last non-empty line
func lastLineVerdict(lines []string) model.Verdict {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.ToLower(strings.TrimSpace(lines[i]))
		if line == "" {
			continue
		}
		switch {
		case strings.Contains(line, "not safe"), strings.Contains(line, "unsafe"), strings.Contains(line, "risky"):
			return model.VerdictRisky
		case strings.Contains(line, "safe"):
			return model.VerdictSafe
		default:
			return model.VerdictUnknown
		}
	}
	return model.VerdictUnknown
}

// mentionsBreaking reports a "breaking" that is not part of a denial
func mentionsBreaking(text string) bool {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "breaking") {
		return false
	}
	stripped := noBreakingRegex.ReplaceAllString(lower, "")
	return strings.Contains(stripped, "breaking")
}

// rationale drops the marker lines and trims the rest
func rationale(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if verdictLineRegex.MatchString(trimmed) || breakingLineRegex.MatchString(trimmed) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
