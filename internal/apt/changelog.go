package apt

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/obentoo/aptaudit/internal/common/system"
)

// DefaultChangelogLimit caps the changelog excerpt sent to a backend
const DefaultChangelogLimit = 6000

// ChangelogFetcher retrieves Debian changelogs through apt-get.
type ChangelogFetcher struct {
	exec  system.Executor
	limit int
}

// NewChangelogFetcher creates a fetcher keeping at most limit bytes per changelog.
// A non-positive limit selects DefaultChangelogLimit.
func NewChangelogFetcher(exec system.Executor, limit int) *ChangelogFetcher {
	if limit <= 0 {
		limit = DefaultChangelogLimit
	}
	return &ChangelogFetcher{exec: exec, limit: limit}
}

// Fetch returns the newest entries of the changelog for pkg.
// Any failure yields an empty string.
func (f *ChangelogFetcher) Fetch(ctx context.Context, pkg string) string {
	out, err := f.exec.Run(ctx, "apt-get", "changelog", pkg)
	if err != nil {
		return ""
	}
	return TruncateChangelog(out, f.limit)
}

// TruncateChangelog keeps the head of a changelog, cut at a line boundary.
// Debian changelogs are newest first, so the head covers the candidate version.
func TruncateChangelog(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}

	cut := text[:limit]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	} else {
		// No line break: back off to a rune boundary
		end := limit
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		cut = text[:end]
	}
	return cut + "\n... (truncated)"
}
