package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

func TestExportXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "failures.xlsx")
	require.NoError(t, ExportXLSX(sampleReport(), path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	summary, ok := f.Sheet["Summary"]
	require.True(t, ok)
	assert.Equal(t, "Total jobs available", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "120", summary.Rows[0].Cells[1].String())
	assert.Equal(t, "Total failures", summary.Rows[2].Cells[0].String())
	assert.Equal(t, "2", summary.Rows[2].Cells[1].String())

	failures, ok := f.Sheet["Failures"]
	require.True(t, ok)

	// Header plus one row per mismatch.
	require.Len(t, failures.Rows, 4)
	header := failures.Rows[0]
	assert.Equal(t, "job_id", header.Cells[0].String())
	assert.Equal(t, "message", header.Cells[7].String())

	first := failures.Rows[1]
	assert.Equal(t, "4821", first.Cells[0].String())
	assert.Equal(t, "Data Engineer", first.Cells[1].String())
	assert.Equal(t, "title", first.Cells[2].String())
	assert.Equal(t, "value_mismatch", first.Cells[3].String())

	orphan := failures.Rows[3]
	assert.Equal(t, "4822", orphan.Cells[0].String())
	assert.Equal(t, "not_found_in_index", orphan.Cells[3].String())
}

func TestExportXLSX_EmptyReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "clean.xlsx")
	empty := &model.FailureReport{TotalJobsAvailable: 10, TotalJobsChecked: 10}
	require.NoError(t, ExportXLSX(empty, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	failures := f.Sheet["Failures"]
	require.NotNil(t, failures)
	require.Len(t, failures.Rows, 1)
}
