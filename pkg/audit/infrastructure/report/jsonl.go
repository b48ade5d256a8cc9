package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

// SummaryRecord is one line of the machine-readable summary. Field names are
// part of the output contract; downstream tooling greps and jq-filters them.
type SummaryRecord struct {
	Component      string            `json:"component"`
	Version        string            `json:"version"`
	Status         string            `json:"status"`
	Error          string            `json:"error,omitempty"`
	ErrorDetail    string            `json:"errorDetail,omitempty"`
	Files          map[string]bool   `json:"files,omitempty"`
	Properties     map[string]string `json:"properties,omitempty"`
	Mapping        map[string]bool   `json:"mapping,omitempty"`
	PropertiesNote string            `json:"propertiesNote,omitempty"`
}

// WriteSummary writes one JSON object per record. Map keys serialize in
// sorted order, so equal inputs produce identical bytes.
func (r *Reporter) WriteSummary(path string, records []model.ValidationRecord) error {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(summaryFromRecord(record)); err != nil {
			return errors.Wrapf(err, "failed to encode summary for %v", record.Component)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "failed to create summary directory")
	}
	return errors.Wrap(os.WriteFile(path, buffer.Bytes(), 0o644), "failed to write summary")
}

// ReadSummary loads a previously written summary so reports can be re-rendered
// without re-fetching anything.
func (r *Reporter) ReadSummary(path string) ([]model.ValidationRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open summary")
	}
	defer file.Close()

	var records []model.ValidationRecord
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var summary SummaryRecord
		if err = json.Unmarshal([]byte(text), &summary); err != nil {
			return nil, errors.Wrapf(err, "failed to parse summary line %v", line)
		}
		records = append(records, recordFromSummary(summary))
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read summary")
	}
	return records, nil
}

func summaryFromRecord(record model.ValidationRecord) SummaryRecord {
	status := "fail"
	if record.OverallPass() {
		status = "pass"
	}
	return SummaryRecord{
		Component:      record.Component,
		Version:        record.Version,
		Status:         status,
		Error:          string(record.Err),
		ErrorDetail:    record.ErrDetail,
		Files:          record.Files,
		Properties:     record.Props,
		Mapping:        record.Mapping,
		PropertiesNote: record.PropsNote,
	}
}

func recordFromSummary(summary SummaryRecord) model.ValidationRecord {
	return model.ValidationRecord{
		Component: summary.Component,
		Version:   summary.Version,
		Files:     summary.Files,
		Props:     summary.Properties,
		Mapping:   summary.Mapping,
		Err:       model.ErrorKind(summary.Error),
		ErrDetail: summary.ErrorDetail,
		PropsNote: summary.PropertiesNote,
	}
}
