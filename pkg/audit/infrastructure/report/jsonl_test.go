package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

func TestSummaryRoundtrip(t *testing.T) {
	records := []model.ValidationRecord{
		passingRecord("web-portal", "1.4.2"),
		downloadFailedRecord("billing-engine", "2.0", "connection refused"),
	}
	path := filepath.Join(t.TempDir(), "report.jsonl")
	reporter := NewReporter()

	require.NoError(t, reporter.WriteSummary(path, records))
	loaded, err := reporter.ReadSummary(path)
	require.NoError(t, err)

	assert.Equal(t, records, loaded)
}

func TestSummaryLinesAreValidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.jsonl")
	reporter := NewReporter()
	require.NoError(t, reporter.WriteSummary(path, []model.ValidationRecord{
		passingRecord("web-portal", "1.4.2"),
		downloadFailedRecord("billing-engine", "2.0", "connection refused"),
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "web-portal", first["component"])
	assert.Equal(t, "pass", first["status"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "fail", second["status"])
	assert.Equal(t, "DownloadFailed", second["error"])
	assert.NotContains(t, second, "files")
}

func TestSummaryKeepsPropertyNote(t *testing.T) {
	files := model.ManifestFileCheck{
		model.ManifestEs1: true,
		model.ManifestEs2: true,
		model.ManifestWs2: true,
	}
	record := model.ValidationRecord{
		Component: "web-portal",
		Version:   "1.4.2",
		Files:     files,
		Props:     model.VersionProperties{},
		Mapping:   model.BuildMapping(files, model.VersionProperties{}),
		PropsNote: "failed to decode version properties",
	}
	path := filepath.Join(t.TempDir(), "report.jsonl")
	reporter := NewReporter()

	require.NoError(t, reporter.WriteSummary(path, []model.ValidationRecord{record}))
	loaded, err := reporter.ReadSummary(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	assert.Equal(t, "failed to decode version properties", loaded[0].PropsNote)
	assert.Empty(t, loaded[0].Props)
	assert.Equal(t, record.Mapping, loaded[0].Mapping)
	assert.False(t, loaded[0].OverallPass())
}

func TestReadSummaryRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"component\":\"a\",\"version\":\"1\",\"status\":\"pass\"}\nnot json\n"), 0o600))

	_, err := NewReporter().ReadSummary(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse summary line 2")
}
