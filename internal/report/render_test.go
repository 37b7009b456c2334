package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obentoo/aptaudit/internal/model"
)

// candidate builds an assessed candidate for tests
func candidate(name string, v model.Verdict, rationale string) model.UpgradeCandidate {
	return model.UpgradeCandidate{
		PackageRecord: model.PackageRecord{
			Name:             name,
			InstalledVersion: "1.0-1",
			CandidateVersion: "1.1-1",
			Origin:           "stable-security",
		},
		Verdict:    v,
		Rationale:  rationale,
		ChangeKind: model.ChangeMinor,
	}
}

// sampleReport returns the foo/bar/baz scenario
func sampleReport(format model.Format) *model.Report {
	bar := candidate("bar", model.VerdictRisky, "Drops the legacy config syntax.")
	bar.Breaking = true
	bar.ConfigPath = "/etc/bar.conf"
	return &model.Report{
		Format:      format,
		Host:        "web01",
		Backend:     "openai",
		Model:       "gpt-4o-mini",
		GeneratedAt: time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC),
		Candidates: []model.UpgradeCandidate{
			candidate("foo", model.VerdictSafe, "Bug fixes only."),
			bar,
			candidate("baz", model.VerdictUnknown, "Assessment failed: connection refused"),
		},
	}
}

// TestParseFormat tests format name parsing
func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected model.Format
		wantErr  bool
	}{
		{"md", model.FormatMarkdown, false},
		{"markdown", model.FormatMarkdown, false},
		{"MD", model.FormatMarkdown, false},
		{"html", model.FormatHTML, false},
		{" HTML ", model.FormatHTML, false},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

// TestExtension tests per-format file names
func TestExtension(t *testing.T) {
	assert.Equal(t, ".md", Extension(model.FormatMarkdown))
	assert.Equal(t, ".html", Extension(model.FormatHTML))
	assert.Equal(t, "upgrade_report.html", DefaultOutput(model.FormatHTML))
	assert.Equal(t, "upgrade_report.md", DefaultOutput(model.FormatMarkdown))
}

// TestRenderErrors tests fatal render conditions
func TestRenderErrors(t *testing.T) {
	_, err := Render(nil)
	assert.ErrorIs(t, err, ErrNilReport)

	_, err = Render(&model.Report{Format: "pdf"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

// TestRenderMarkdown tests the markdown layout
func TestRenderMarkdown(t *testing.T) {
	doc, err := Render(sampleReport(model.FormatMarkdown))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, "# "+Title+"\n"))
	assert.Contains(t, doc, "Host: `web01`")
	assert.Contains(t, doc, "Generated: 2026-10-15 08:30:00 UTC")
	assert.Contains(t, doc, "- Candidates: 3")
	assert.Contains(t, doc, "- Risky: 1")
	assert.Contains(t, doc, "## bar\n")
	assert.Contains(t, doc, "- Version: `1.0-1` -> `1.1-1` (minor)")
	assert.Contains(t, doc, "- Verdict: **risky**")
	assert.Contains(t, doc, "- Breaking changes: yes")
	assert.Contains(t, doc, "- Configuration: `/etc/bar.conf`")
	assert.Contains(t, doc, "> Drops the legacy config syntax.")
	assert.Contains(t, doc, "> Assessment failed: connection refused")
	assert.NotContains(t, doc, NoUpgrades)

	// Sections follow candidate order
	foo := strings.Index(doc, "## foo")
	bar := strings.Index(doc, "## bar")
	baz := strings.Index(doc, "## baz")
	assert.True(t, foo < bar && bar < baz, "sections out of order")
}

// TestRenderBackendMeta tests that the provider and model appear in the meta line
func TestRenderBackendMeta(t *testing.T) {
	md := RenderMarkdown(sampleReport(model.FormatMarkdown))
	assert.Contains(t, md, "Host: `web01` | Generated: 2026-10-15 08:30:00 UTC | Backend: openai (gpt-4o-mini)\n")

	doc, err := RenderHTML(sampleReport(model.FormatHTML))
	require.NoError(t, err)
	q, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Backend: openai (gpt-4o-mini)", q.Find("p.meta span.backend").Text())

	tests := []struct {
		backend, llm, expected string
	}{
		{"", "", ""},
		{"", "gpt-4o-mini", ""},
		{"claude", "", "claude"},
		{"openllm", "llama3", "openllm (llama3)"},
	}
	for _, tt := range tests {
		r := &model.Report{Backend: tt.backend, Model: tt.llm}
		if got := backendLabel(r); got != tt.expected {
			t.Errorf("backendLabel(%q, %q) = %q, want %q", tt.backend, tt.llm, got, tt.expected)
		}
		md := RenderMarkdown(r)
		if tt.expected == "" && strings.Contains(md, "Backend:") {
			t.Errorf("markdown for backend %q should not carry a Backend part", tt.backend)
		}
	}

	bare, err := RenderHTML(&model.Report{})
	require.NoError(t, err)
	assert.NotContains(t, bare, `class="meta"`)
}

// TestRenderMarkdownMultilineRationale tests that every rationale line stays inside the blockquote
func TestRenderMarkdownMultilineRationale(t *testing.T) {
	r := &model.Report{
		Format:     model.FormatMarkdown,
		Candidates: []model.UpgradeCandidate{candidate("foo", model.VerdictSafe, "first\n\nsecond")},
	}
	doc := RenderMarkdown(r)
	assert.Contains(t, doc, "> first\n>\n> second\n")
}

// TestRenderEmpty tests that an empty report is still a complete document
func TestRenderEmpty(t *testing.T) {
	for _, format := range []model.Format{model.FormatMarkdown, model.FormatHTML} {
		t.Run(string(format), func(t *testing.T) {
			doc, err := Render(&model.Report{Format: format})
			require.NoError(t, err)
			assert.NotEmpty(t, doc)
			assert.Contains(t, doc, NoUpgrades)
			assert.Contains(t, doc, Title)
		})
	}

	doc, err := RenderHTML(&model.Report{Format: model.FormatHTML})
	require.NoError(t, err)
	q, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 0, q.Find("tr.candidate").Length())
	assert.Equal(t, 1, q.Find("p.empty").Length())
}

// TestRenderHTMLStructure checks rows and cells with CSS selectors
func TestRenderHTMLStructure(t *testing.T) {
	doc, err := Render(sampleReport(model.FormatHTML))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))

	q, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	require.NoError(t, err)

	rows := q.Find("tbody tr.candidate")
	require.Equal(t, 3, rows.Length())

	var names []string
	rows.Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.Find("td.name").Text())
	})
	assert.Equal(t, []string{"foo", "bar", "baz"}, names)

	bar := rows.Eq(1)
	assert.True(t, bar.HasClass("verdict-risky"))
	assert.Equal(t, "risky", bar.Find("td.verdict").Text())
	assert.Equal(t, "yes", bar.Find("td.breaking").Text())
	assert.Equal(t, "/etc/bar.conf", bar.Find("td.config").Text())
	assert.Equal(t, "1.0-1", bar.Find("td.installed").Text())
	assert.Equal(t, "1.1-1", bar.Find("td.candidate-version").Text())

	assert.Equal(t, "web01", q.Find("p.meta code").Text())
	assert.Equal(t, 0, q.Find("p.empty").Length())
}

// TestRenderHTMLXPath checks the same document through XPath
func TestRenderHTMLXPath(t *testing.T) {
	doc, err := RenderHTML(sampleReport(model.FormatHTML))
	require.NoError(t, err)

	root, err := htmlquery.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	rows, err := htmlquery.QueryAll(root, "//table[@class='candidates']/tbody/tr")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	unknown := htmlquery.FindOne(root, "//tr[contains(@class,'verdict-unknown')]/td[@class='name']")
	require.NotNil(t, unknown)
	assert.Equal(t, "baz", htmlquery.InnerText(unknown))

	title := htmlquery.FindOne(root, "//head/title")
	require.NotNil(t, title)
	assert.Equal(t, Title, htmlquery.InnerText(title))
}

// TestRenderHTMLEscapes tests that model text cannot inject markup
func TestRenderHTMLEscapes(t *testing.T) {
	r := &model.Report{
		Format: model.FormatHTML,
		Host:   "<b>host</b>",
		Candidates: []model.UpgradeCandidate{
			candidate("foo", model.VerdictRisky, `<script>alert("x")</script>`),
		},
	}
	doc, err := RenderHTML(r)
	require.NoError(t, err)

	assert.NotContains(t, doc, "<script>")
	assert.NotContains(t, doc, "<b>host</b>")

	q, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 0, q.Find("script").Length())
	assert.Equal(t, `<script>alert("x")</script>`, q.Find("td.rationale").Text())
}

// TestRenderUnassessedCandidate tests defaults for a candidate that never got a verdict
func TestRenderUnassessedCandidate(t *testing.T) {
	r := &model.Report{
		Format:     model.FormatMarkdown,
		Candidates: []model.UpgradeCandidate{candidate("foo", "", "")},
	}
	doc := RenderMarkdown(r)
	assert.Contains(t, doc, "- Verdict: **unknown**")
	assert.Contains(t, doc, "> No rationale provided.")
}

// genNames generates n distinct package names of equal width so none is a substring of another
func genNames() gopter.Gen {
	return gen.IntRange(0, 25).Map(func(n int) []string {
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("zqpkg%03d", i)
		}
		return names
	})
}

// TestRenderProperties tests row counts and name occurrence for both formats
func TestRenderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	build := func(names []string, format model.Format) *model.Report {
		r := &model.Report{Format: format}
		for _, n := range names {
			r.Candidates = append(r.Candidates, candidate(n, model.VerdictSafe, "ok"))
		}
		return r
	}

	properties.Property("html has exactly one row per candidate", prop.ForAll(
		func(names []string) bool {
			doc, err := Render(build(names, model.FormatHTML))
			if err != nil {
				return false
			}
			q, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
			if err != nil {
				return false
			}
			return q.Find("tr.candidate").Length() == len(names)
		},
		genNames(),
	))

	properties.Property("every name appears exactly once", prop.ForAll(
		func(names []string) bool {
			for _, format := range []model.Format{model.FormatMarkdown, model.FormatHTML} {
				doc, err := Render(build(names, format))
				if err != nil {
					return false
				}
				for _, n := range names {
					if strings.Count(doc, n) != 1 {
						return false
					}
				}
			}
			return true
		},
		genNames(),
	))

	properties.Property("rendering is deterministic", prop.ForAll(
		func(names []string) bool {
			r := build(names, model.FormatHTML)
			a, errA := Render(r)
			b, errB := Render(r)
			return errA == nil && errB == nil && a == b
		},
		genNames(),
	))

	properties.TestingRun(t)
}
