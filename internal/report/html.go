package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/obentoo/aptaudit/internal/model"
)

// htmlRow is one candidate as the template sees it
type htmlRow struct {
	Name       string
	Installed  string
	Candidate  string
	ChangeKind string
	Verdict    string
	Breaking   string
	ConfigPath string
	Rationale  string
}

// htmlView is the template input
type htmlView struct {
	Title     string
	Host      string
	Generated string
	Backend   string
	Empty     string
	Summary   model.Summary
	Rows      []htmlRow
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4em; text-align: left; vertical-align: top; }
td.rationale { white-space: pre-wrap; }
tr.verdict-safe td.verdict { color: #1a7f37; }
tr.verdict-risky td.verdict { color: #cf222e; font-weight: bold; }
tr.verdict-unknown td.verdict { color: #9a6700; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if or .Host .Generated .Backend}}
<p class="meta">
{{- if .Host}}<span class="host">Host: <code>{{.Host}}</code></span>{{end}}
{{- if .Generated}} <span class="generated">Generated: {{.Generated}}</span>{{end}}
{{- if .Backend}} <span class="backend">Backend: {{.Backend}}</span>{{end -}}
</p>
{{- end}}
{{- if not .Rows}}
<p class="empty">{{.Empty}}</p>
{{- else}}
<ul class="summary">
<li>Candidates: {{.Summary.Total}}</li>
<li>Risky: {{.Summary.Risky}}</li>
<li>Unknown: {{.Summary.Unknown}}</li>
<li>Safe: {{.Summary.Safe}}</li>
<li>With breaking changes: {{.Summary.Breaking}}</li>
</ul>
<table class="candidates">
<thead>
<tr><th>Package</th><th>Installed</th><th>Candidate</th><th>Change</th><th>Verdict</th><th>Breaking</th><th>Configuration</th><th>Rationale</th></tr>
</thead>
<tbody>
{{- range .Rows}}
<tr class="candidate verdict-{{.Verdict}}">
<td class="name">{{.Name}}</td>
<td class="installed">{{.Installed}}</td>
<td class="candidate-version">{{.Candidate}}</td>
<td class="change">{{.ChangeKind}}</td>
<td class="verdict">{{.Verdict}}</td>
<td class="breaking">{{.Breaking}}</td>
<td class="config">{{.ConfigPath}}</td>
<td class="rationale">{{.Rationale}}</td>
</tr>
{{- end}}
</tbody>
</table>
{{- end}}
</body>
</html>
`))

// RenderHTML renders r as a standalone HTML document. All model text is escaped.
func RenderHTML(r *model.Report) (string, error) {
	view := htmlView{
		Title:   Title,
		Host:    r.Host,
		Backend: backendLabel(r),
		Empty:   NoUpgrades,
		Summary: r.Summary(),
	}
	if !r.GeneratedAt.IsZero() {
		view.Generated = r.GeneratedAt.Format("2006-01-02 15:04:05 MST")
	}

	for _, c := range r.Candidates {
		view.Rows = append(view.Rows, htmlRow{
			Name:       c.Name,
			Installed:  c.InstalledVersion,
			Candidate:  c.CandidateVersion,
			ChangeKind: string(c.ChangeKind),
			Verdict:    string(verdictOf(c)),
			Breaking:   breakingLabel(c.Breaking),
			ConfigPath: c.ConfigPath,
			Rationale:  rationaleOf(c),
		})
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render html report: %w", err)
	}
	return buf.String(), nil
}
