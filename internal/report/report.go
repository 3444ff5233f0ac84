// Package report persists verification failure reports and prepares them
// for triage: JSON on disk as the canonical artifact, category breakdowns,
// and a spreadsheet export for sharing outside engineering.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

const (
	// FileSuffix names a module's report file: <module>_failures.json.
	FileSuffix = "_failures.json"

	// DefaultFileName is the report artifact name for the default module.
	DefaultFileName = "db_solr_sync" + FileSuffix
)

// Write marshals the report and atomically replaces the file at path, so a
// crash mid-write can never leave a truncated report behind.
func Write(r *model.FailureReport, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: marshal")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "report: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return eris.Wrap(err, "report: create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrap(err, "report: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "report: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "report: replace %s", path)
	}
	return nil
}

// Read loads a previously written report.
func Read(path string) (*model.FailureReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var r model.FailureReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "report: unmarshal %s", path)
	}
	return &r, nil
}
