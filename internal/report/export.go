package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

var exportHeader = []string{
	"job_id", "db_title", "field", "category",
	"db_value", "index_value", "source_field_used", "message",
}

// ExportXLSX writes the report as a two-sheet spreadsheet: a summary with
// totals and category counts, and one row per mismatch for filtering.
func ExportXLSX(r *model.FailureReport, path string) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	writeSummary(summary, r)

	failures, err := f.AddSheet("Failures")
	if err != nil {
		return eris.Wrap(err, "report: add failures sheet")
	}

	header := failures.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}

	for _, fail := range r.Failures {
		for _, m := range fail.Mismatches {
			row := failures.AddRow()
			row.AddCell().SetInt64(m.JobID)
			row.AddCell().SetString(fail.DBTitle)
			row.AddCell().SetString(m.FieldName)
			row.AddCell().SetString(string(m.Category))
			row.AddCell().SetString(m.DBValue)
			row.AddCell().SetString(m.IndexValue)
			row.AddCell().SetString(m.SourceFieldUsed)
			row.AddCell().SetString(m.Message)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func writeSummary(sheet *xlsx.Sheet, r *model.FailureReport) {
	addPair := func(label string, value int) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetInt(value)
	}

	addPair("Total jobs available", r.TotalJobsAvailable)
	addPair("Total jobs checked", r.TotalJobsChecked)
	addPair("Total failures", r.TotalFailures)

	b := Categorize(r)
	addPair("Total mismatches", b.TotalMismatches)

	sheet.AddRow()
	catHeader := sheet.AddRow()
	catHeader.AddCell().SetString("Category")
	catHeader.AddCell().SetString("Count")
	for _, c := range b.Categories() {
		addPair(string(c), b.ByCategory[c])
	}
}
