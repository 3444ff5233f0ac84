package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

const testModule = "db_solr_sync"
const testName = "db_solr_sync_check"

func newTestRecorder(t *testing.T, cfg Config) *Recorder {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	if cfg.Module == "" {
		cfg.Module = testModule
	}
	return NewRecorder(cfg)
}

func atTime(r *Recorder, ts time.Time) {
	r.nowFn = func() time.Time { return ts }
}

func passReport() *model.FailureReport {
	return &model.FailureReport{
		TotalJobsAvailable: 20,
		TotalJobsChecked:   20,
		Failures:           []model.JobFailure{},
	}
}

func failReport() *model.FailureReport {
	return &model.FailureReport{
		TotalJobsAvailable: 20,
		TotalJobsChecked:   20,
		TotalFailures:      2,
		Failures: []model.JobFailure{
			{
				ID:      4821,
				DBTitle: "Data Engineer",
				Msg:     `title mismatch: db="Data Engineer" index="Data engineer"`,
				Mismatches: []model.FieldMismatch{
					{JobID: 4821, FieldName: "title", Category: model.CategoryValueMismatch,
						Message: `title mismatch: db="Data Engineer" index="Data engineer"`},
					{JobID: 4821, FieldName: "ai_skills", Category: model.CategorySkillsMissing,
						Message: "ai_skills missing in index: [Kafka] (1 of 3)"},
				},
			},
			{
				ID:      4822,
				DBTitle: "Backend Developer",
				Msg:     "job 4822 not found in index",
				Mismatches: []model.FieldMismatch{
					{JobID: 4822, Category: model.CategoryNotFoundInIndex,
						Message: "job 4822 not found in index"},
				},
			},
		},
	}
}

func TestRecorder_Record_Pass(t *testing.T) {
	r := newTestRecorder(t, Config{})
	atTime(r, time.Date(2025, 6, 10, 14, 30, 45, 0, time.UTC))

	entry, err := r.Record(passReport(), testName)
	require.NoError(t, err)

	assert.Equal(t, testName, entry.TestName)
	assert.Equal(t, model.StatusPass, entry.Status)
	assert.Equal(t, "2025-06-10", entry.Date)
	assert.Equal(t, "2025-06-10 14:30:45", entry.Datetime)
	assert.Equal(t, 20, entry.TotalJobs)
	assert.Equal(t, 0, entry.ErrorJobsCount)
	assert.Empty(t, entry.ErrorJobs)
	assert.Empty(t, entry.FailureMessage)

	assert.Equal(t, filepath.Join(r.cfg.Dir, "db_solr_sync_history.json"), r.Path())

	hist, err := r.Load()
	require.NoError(t, err)
	require.Len(t, hist[testName], 1)
	assert.Equal(t, entry, hist[testName][0])
}

func TestRecorder_Record_Fail(t *testing.T) {
	r := newTestRecorder(t, Config{})
	atTime(r, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))

	entry, err := r.Record(failReport(), testName)
	require.NoError(t, err)

	assert.Equal(t, model.StatusFail, entry.Status)
	assert.Equal(t, 2, entry.ErrorJobsCount)
	require.Len(t, entry.ErrorJobs, 3)
	assert.Equal(t, int64(4821), entry.ErrorJobs[0].JobID)
	assert.Contains(t, entry.FailureMessage, "title mismatch")
	assert.Contains(t, entry.FailureMessage, "not found in index")
	assert.Contains(t, entry.FailureMessage, "; ")
}

func TestRecorder_Record_SameDayReplaces(t *testing.T) {
	r := newTestRecorder(t, Config{})
	atTime(r, time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC))

	_, err := r.Record(failReport(), testName)
	require.NoError(t, err)

	// A later run on the same day replaces the morning entry.
	atTime(r, time.Date(2025, 6, 10, 17, 0, 0, 0, time.UTC))
	_, err = r.Record(passReport(), testName)
	require.NoError(t, err)

	hist, err := r.Load()
	require.NoError(t, err)
	require.Len(t, hist[testName], 1)
	assert.Equal(t, model.StatusPass, hist[testName][0].Status)
	assert.Equal(t, "2025-06-10 17:00:00", hist[testName][0].Datetime)
}

func TestRecorder_Record_MostRecentFirst(t *testing.T) {
	r := newTestRecorder(t, Config{})

	for day := 10; day <= 12; day++ {
		atTime(r, time.Date(2025, 6, day, 6, 0, 0, 0, time.UTC))
		_, err := r.Record(passReport(), testName)
		require.NoError(t, err)
	}

	hist, err := r.Load()
	require.NoError(t, err)
	entries := hist[testName]
	require.Len(t, entries, 3)
	assert.Equal(t, "2025-06-12", entries[0].Date)
	assert.Equal(t, "2025-06-11", entries[1].Date)
	assert.Equal(t, "2025-06-10", entries[2].Date)
}

func TestRecorder_Record_RetentionPrunesOldEntries(t *testing.T) {
	r := newTestRecorder(t, Config{RetentionDays: 7})

	atTime(r, time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC))
	_, err := r.Record(passReport(), testName)
	require.NoError(t, err)

	// Ten days later the June 1 entry falls outside the window.
	atTime(r, time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC))
	_, err = r.Record(failReport(), testName)
	require.NoError(t, err)

	hist, err := r.Load()
	require.NoError(t, err)
	entries := hist[testName]
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-06-11", entries[0].Date)
}

func TestRecorder_Record_KeepLatestOnly(t *testing.T) {
	r := newTestRecorder(t, Config{KeepLatestOnly: true})

	atTime(r, time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC))
	_, err := r.Record(passReport(), testName)
	require.NoError(t, err)

	atTime(r, time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC))
	_, err = r.Record(failReport(), testName)
	require.NoError(t, err)

	hist, err := r.Load()
	require.NoError(t, err)
	require.Len(t, hist[testName], 1)
	assert.Equal(t, "2025-06-11", hist[testName][0].Date)
}

func TestRecorder_Record_SampleSizeCap(t *testing.T) {
	r := newTestRecorder(t, Config{SampleSize: 2})
	atTime(r, time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC))

	entry, err := r.Record(failReport(), testName)
	require.NoError(t, err)
	assert.Len(t, entry.ErrorJobs, 2)
	assert.Equal(t, 2, entry.ErrorJobsCount)
}

func TestRecorder_Record_FailureMessageTruncated(t *testing.T) {
	r := newTestRecorder(t, Config{})
	atTime(r, time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC))

	rep := failReport()
	rep.Failures[0].Msg = strings.Repeat("x", 5000)

	entry, err := r.Record(rep, testName)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entry.FailureMessage), maxFailureMessage+3)
	assert.True(t, strings.HasSuffix(entry.FailureMessage, "..."))
}

func TestRecorder_Record_MultipleTestNames(t *testing.T) {
	r := newTestRecorder(t, Config{})
	atTime(r, time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC))

	_, err := r.Record(passReport(), "db_solr_sync_check")
	require.NoError(t, err)
	_, err = r.Record(failReport(), "db_solr_title_check")
	require.NoError(t, err)

	hist, err := r.Load()
	require.NoError(t, err)
	assert.Len(t, hist, 2)
	assert.Len(t, hist["db_solr_sync_check"], 1)
	assert.Len(t, hist["db_solr_title_check"], 1)
}

func TestRecorder_Prune(t *testing.T) {
	r := newTestRecorder(t, Config{RetentionDays: 7})

	for day := 1; day <= 3; day++ {
		atTime(r, time.Date(2025, 6, day, 6, 0, 0, 0, time.UTC))
		_, err := r.Record(passReport(), testName)
		require.NoError(t, err)
	}

	// Advance far enough that the first two days age out but June 3 stays.
	atTime(r, time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC))
	removed, err := r.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	hist, err := r.Load()
	require.NoError(t, err)
	require.Len(t, hist[testName], 1)
	assert.Equal(t, "2025-06-03", hist[testName][0].Date)
}

func TestRecorder_Prune_MissingFile(t *testing.T) {
	r := newTestRecorder(t, Config{})

	removed, err := r.Prune()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestLoadFile_Missing(t *testing.T) {
	hist, err := LoadFile(filepath.Join(t.TempDir(), "nope_history.json"))
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestListModules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db_solr_sync_history.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profiles_sync_history.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive_history.json"), 0o755))

	modules, err := ListModules(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"db_solr_sync", "profiles_sync"}, modules)
}

func TestListModules_MissingDir(t *testing.T) {
	modules, err := ListModules(filepath.Join(t.TempDir(), "nowhere"))
	require.NoError(t, err)
	assert.Nil(t, modules)
}

func TestAcquireLock_StaleTakeover(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "db_solr_sync_history.json.lock")

	require.NoError(t, os.WriteFile(lockPath, []byte("1234\n"), 0o644))
	stale := time.Now().Add(-lockStaleAfter - time.Minute)
	require.NoError(t, os.Chtimes(lockPath, stale, stale))

	unlock, err := acquireLock(lockPath)
	require.NoError(t, err)
	unlock()

	_, statErr := os.Stat(lockPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquireLock_ReleaseAllowsReacquire(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "x.lock")

	unlock, err := acquireLock(lockPath)
	require.NoError(t, err)
	unlock()

	unlock2, err := acquireLock(lockPath)
	require.NoError(t, err)
	unlock2()
}
