package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jobsnprofiles/synccheck/internal/history"
	"github.com/jobsnprofiles/synccheck/internal/model"
	"github.com/jobsnprofiles/synccheck/internal/report"
	"github.com/jobsnprofiles/synccheck/internal/source"
)

func TestFormatReportSummary_Pass(t *testing.T) {
	rep := &model.FailureReport{
		TotalJobsAvailable: 120,
		TotalJobsChecked:   50,
		TotalFailures:      0,
		Failures:           []model.JobFailure{},
	}

	var buf bytes.Buffer
	formatReportSummary(&buf, rep)

	output := buf.String()
	assert.Contains(t, output, "Jobs available:")
	assert.Contains(t, output, "120")
	assert.Contains(t, output, "Jobs checked:")
	assert.Contains(t, output, "50")
	assert.Contains(t, output, "PASS")
}

func TestFormatReportSummary_Fail(t *testing.T) {
	rep := &model.FailureReport{
		TotalJobsAvailable: 10,
		TotalJobsChecked:   10,
		TotalFailures:      2,
		Failures:           make([]model.JobFailure, 2),
	}

	var buf bytes.Buffer
	formatReportSummary(&buf, rep)

	assert.Contains(t, buf.String(), "FAIL")
}

func TestFormatFailures(t *testing.T) {
	failures := []model.JobFailure{
		{
			ID:      4821,
			DBTitle: "Data Engineer",
			Msg:     "title mismatch; work_mode mismatch",
			Mismatches: []model.FieldMismatch{
				{JobID: 4821, FieldName: "title", Category: model.CategoryValueMismatch},
				{JobID: 4821, FieldName: "work_mode", Category: model.CategoryValueMismatch},
			},
		},
		{
			ID:      9999,
			DBTitle: "Staff Platform Engineer With A Very Long Job Title",
			Msg:     "job 9999 not found in index",
			Mismatches: []model.FieldMismatch{
				{JobID: 9999, Category: model.CategoryNotFoundInIndex, Message: "job 9999 not found in index"},
			},
		},
	}

	var buf bytes.Buffer
	formatFailures(&buf, failures)

	output := buf.String()
	assert.Contains(t, output, "JOB_ID")
	assert.Contains(t, output, "4821")
	assert.Contains(t, output, "Data Engineer")
	assert.Contains(t, output, "title,work_mode")
	assert.Contains(t, output, "9999")
	// Long titles are truncated for the table.
	assert.Contains(t, output, "Staff Platform Engineer Wit...")
	assert.NotContains(t, output, "Very Long Job Title")
}

func TestFormatHistory(t *testing.T) {
	hist := history.History{
		"db_solr_sync_check": {
			{
				TestName:       "db_solr_sync_check",
				Status:         model.StatusFail,
				Date:           "2025-06-12",
				Datetime:       "2025-06-12 09:15:00",
				TotalJobs:      50,
				ErrorJobsCount: 3,
			},
			{
				TestName:  "db_solr_sync_check",
				Status:    model.StatusPass,
				Date:      "2025-06-11",
				Datetime:  "2025-06-11 09:15:00",
				TotalJobs: 48,
			},
		},
	}

	var buf bytes.Buffer
	formatHistory(&buf, hist)

	output := buf.String()
	assert.Contains(t, output, "TEST")
	assert.Contains(t, output, "db_solr_sync_check")
	assert.Contains(t, output, "2025-06-12")
	assert.Contains(t, output, "09:15:00")
	assert.Contains(t, output, "FAIL")
	assert.Contains(t, output, "PASS")
}

func TestFormatBreakdown(t *testing.T) {
	rep := &model.FailureReport{
		TotalJobsChecked: 50,
		TotalFailures:    2,
		Failures: []model.JobFailure{
			{
				ID: 4821,
				Mismatches: []model.FieldMismatch{
					{JobID: 4821, FieldName: "title", Category: model.CategoryValueMismatch},
					{JobID: 4821, FieldName: "ai_skills", Category: model.CategorySkillsMissing},
				},
			},
			{
				ID: 9999,
				Mismatches: []model.FieldMismatch{
					{JobID: 9999, Category: model.CategoryNotFoundInIndex},
				},
			},
		},
	}

	var buf bytes.Buffer
	formatBreakdown(&buf, report.Categorize(rep))

	output := buf.String()
	assert.Contains(t, output, "Mismatches:")
	assert.Contains(t, output, "CATEGORY")
	assert.Contains(t, output, "value_mismatch")
	assert.Contains(t, output, "skills_missing")
	assert.Contains(t, output, "not_found_in_index")
	assert.Contains(t, output, "FIELD")
	assert.Contains(t, output, "ai_skills")
}

func TestFormatSnapshotMeta(t *testing.T) {
	meta := &source.SnapshotMeta{
		ID:         "f81d4fae-7dec-11d0-a765-00a0c91e6bf6",
		CapturedAt: time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC),
		Since:      time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC),
		JobCount:   50,
		DocCount:   49,
	}

	var buf bytes.Buffer
	formatSnapshotMeta(&buf, "snapshots/db_solr_sync.db", meta)

	output := buf.String()
	assert.Contains(t, output, "snapshots/db_solr_sync.db")
	assert.Contains(t, output, "f81d4fae")
	assert.Contains(t, output, "2025-06-12 09:00:00")
	assert.Contains(t, output, "Jobs:")
	assert.Contains(t, output, "50")
	assert.Contains(t, output, "49")
}
