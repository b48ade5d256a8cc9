package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

const reportPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8"><title>{{ .Title }}</title>
<style>
body {
  font-family: "Helvetica Neue", Arial, sans-serif;
  margin: 2em;
  color: #333;
}
table {
  border-collapse: collapse;
}
th, td {
  border: 1px solid #ccc;
  padding: 0.4em 0.8em;
  text-align: left;
}
th {
  background-color: #f0f0f0;
}
.pass {
  background-color: #dff0d8;
  color: #3c763d;
}
.fail {
  background-color: #f2dede;
  color: #a94442;
}
.notset {
  background-color: #fcf8e3;
  color: #8a6d3b;
}
.error {
  background-color: #f2dede;
  color: #a94442;
}
.note {
  font-size: 0.85em;
  color: #8a6d3b;
}
.summary {
  margin-top: 1em;
}
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<table>
<tr>
<th>Component</th>
<th>Version</th>
{{ range .ManifestNames }}<th>{{ . }}</th>
{{ end }}{{ range .PropertyNames }}<th>{{ . }}</th>
{{ end }}<th>Result</th>
</tr>
{{ range .Rows }}<tr>
<td>{{ .Component }}</td>
<td>{{ .Version }}</td>
{{ if .Error }}<td class="error" colspan="{{ $.ErrorSpan }}">{{ .Error }}</td>
{{ else }}{{ range .Files }}<td class="{{ .Class }}">{{ .Display }}</td>
{{ end }}{{ range .Properties }}<td class="{{ .Class }}">{{ .Display }}</td>
{{ end }}{{ end }}<td class="{{ .ResultClass }}">{{ .Result }}{{ if .Note }}<div class="note">{{ .Note }}</div>{{ end }}</td>
</tr>
{{ end }}</table>
<p class="summary">{{ .Passed }} passed, {{ .Failed }} failed, {{ .Total }} total</p>
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Parse(reportPage))

type cell struct {
	Class   string
	Display string
}

type reportRow struct {
	Component   string
	Version     string
	Error       string
	Files       []cell
	Properties  []cell
	Result      string
	ResultClass string
	Note        string
}

type reportView struct {
	Title         string
	ManifestNames []string
	PropertyNames []string
	ErrorSpan     int
	Rows          []reportRow
	Passed        int
	Failed        int
	Total         int
}

// WriteHTML renders the report and its checksum sidecar. Rendering goes
// through a buffer so the file only ever holds a complete report.
func (r *Reporter) WriteHTML(path string, records []model.ValidationRecord) error {
	var buffer bytes.Buffer
	if err := reportTemplate.Execute(&buffer, buildReportView(records)); err != nil {
		return errors.Wrap(err, "failed to render report")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "failed to create report directory")
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	return writeFingerprint(path, buffer.Bytes())
}

func buildReportView(records []model.ValidationRecord) reportView {
	view := reportView{
		Title:         "Artifact Validation Report",
		ManifestNames: model.ManifestNames(),
		PropertyNames: model.PropertyNames(),
		Total:         len(records),
	}
	view.ErrorSpan = len(view.ManifestNames) + len(view.PropertyNames)

	for _, record := range records {
		row := reportRow{
			Component: record.Component,
			Version:   record.Version,
			Note:      record.PropsNote,
		}
		if record.Err != model.ErrorNone {
			row.Error = fmt.Sprintf("%v: %v", record.Err, record.ErrDetail)
			row.Result = "FAIL"
			row.ResultClass = "fail"
			view.Failed++
			view.Rows = append(view.Rows, row)
			continue
		}

		for _, name := range view.ManifestNames {
			if record.Files[name] {
				row.Files = append(row.Files, cell{Class: "pass", Display: "present"})
			} else {
				row.Files = append(row.Files, cell{Class: "fail", Display: "missing"})
			}
		}
		for _, property := range view.PropertyNames {
			// Property cells carry the mapping verdict, so a correct value
			// whose manifest file is missing still renders as a failure.
			value, ok := record.Props[property]
			switch {
			case !ok:
				row.Properties = append(row.Properties, cell{Class: "notset", Display: "Not Set"})
			case record.Mapping[property]:
				row.Properties = append(row.Properties, cell{Class: "pass", Display: value})
			default:
				row.Properties = append(row.Properties, cell{Class: "fail", Display: value})
			}
		}

		if record.OverallPass() {
			row.Result = "PASS"
			row.ResultClass = "pass"
			view.Passed++
		} else {
			row.Result = "FAIL"
			row.ResultClass = "fail"
			view.Failed++
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}
