// Package history records verification outcomes over time. Each module owns
// one JSON file mapping test names to entries ordered most recent first;
// repeated runs on the same day collapse into a single entry so the trend
// view shows one result per day.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

const (
	// FileSuffix names a module's history file: <module>_history.json.
	FileSuffix = "_history.json"

	DefaultRetentionDays = 7
	DefaultSampleSize    = 50

	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"

	// maxFailureMessage bounds the persisted failure summary so one bad run
	// cannot bloat the history file.
	maxFailureMessage = 2000
)

// History maps test names to their recorded entries, most recent first.
type History map[string][]model.HistoryEntry

// Config tunes a Recorder.
type Config struct {
	// Dir is the directory holding history files, usually logs/history.
	Dir string

	// Module names the history file, e.g. "db_solr_sync".
	Module string

	// RetentionDays drops entries older than this many days; zero picks the
	// default.
	RetentionDays int

	// KeepLatestOnly collapses each test to its single most recent entry.
	KeepLatestOnly bool

	// SampleSize caps how many mismatches are embedded per entry; zero picks
	// the default.
	SampleSize int
}

// Recorder persists run outcomes for one module.
type Recorder struct {
	cfg   Config
	nowFn func() time.Time
	log   *zap.Logger
}

func NewRecorder(cfg Config) *Recorder {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	return &Recorder{
		cfg:   cfg,
		nowFn: time.Now,
		log:   zap.L().With(zap.String("component", "history")),
	}
}

// Path returns the module's history file path.
func (r *Recorder) Path() string {
	return filepath.Join(r.cfg.Dir, r.cfg.Module+FileSuffix)
}

// Record summarizes a finished run, folds it into the history under
// testName, applies retention, and writes the file back. Runs recorded on
// the same day replace that day's entry instead of stacking.
func (r *Recorder) Record(report *model.FailureReport, testName string) (model.HistoryEntry, error) {
	entry := r.buildEntry(report, testName)

	unlock, err := acquireLock(r.Path() + ".lock")
	if err != nil {
		return model.HistoryEntry{}, err
	}
	defer unlock()

	hist, err := r.Load()
	if err != nil {
		return model.HistoryEntry{}, err
	}

	entries := hist[testName]
	if len(entries) > 0 && entries[0].Date == entry.Date {
		entries[0] = entry
	} else {
		entries = append([]model.HistoryEntry{entry}, entries...)
	}
	hist[testName] = r.applyRetention(entries)

	if err := r.write(hist); err != nil {
		return model.HistoryEntry{}, err
	}

	r.log.Info("run recorded",
		zap.String("test_name", testName),
		zap.String("status", string(entry.Status)),
		zap.Int("total_jobs", entry.TotalJobs),
		zap.Int("error_jobs_count", entry.ErrorJobsCount),
	)
	return entry, nil
}

// Prune applies retention to every test in the module's history and reports
// how many entries were dropped. Missing history files prune to nothing.
func (r *Recorder) Prune() (int, error) {
	unlock, err := acquireLock(r.Path() + ".lock")
	if err != nil {
		return 0, err
	}
	defer unlock()

	hist, err := r.Load()
	if err != nil {
		return 0, err
	}
	if len(hist) == 0 {
		return 0, nil
	}

	removed := 0
	for name, entries := range hist {
		kept := r.applyRetention(entries)
		removed += len(entries) - len(kept)
		hist[name] = kept
	}
	if removed == 0 {
		return 0, nil
	}

	if err := r.write(hist); err != nil {
		return 0, err
	}
	r.log.Info("history pruned", zap.Int("removed", removed))
	return removed, nil
}

// Load reads the module's history file; a missing file is an empty history.
func (r *Recorder) Load() (History, error) {
	return LoadFile(r.Path())
}

func (r *Recorder) buildEntry(report *model.FailureReport, testName string) model.HistoryEntry {
	now := r.nowFn()

	entry := model.HistoryEntry{
		TestName:       testName,
		Status:         model.StatusPass,
		Date:           now.Format(dateLayout),
		Datetime:       now.Format(datetimeLayout),
		TotalJobs:      report.TotalJobsChecked,
		ErrorJobsCount: report.TotalFailures,
		ErrorJobs:      []model.FieldMismatch{},
	}
	if report.TotalFailures == 0 {
		return entry
	}

	entry.Status = model.StatusFail

	sample := report.AllMismatches()
	if len(sample) > r.cfg.SampleSize {
		sample = sample[:r.cfg.SampleSize]
	}
	entry.ErrorJobs = sample

	msgs := make([]string, len(report.Failures))
	for i, f := range report.Failures {
		msgs[i] = f.Msg
	}
	entry.FailureMessage = truncate(strings.Join(msgs, "; "), maxFailureMessage)
	return entry
}

// applyRetention drops entries older than the retention window. Entries with
// unparseable dates are kept so corruption never silently erases history.
func (r *Recorder) applyRetention(entries []model.HistoryEntry) []model.HistoryEntry {
	if r.cfg.KeepLatestOnly && len(entries) > 1 {
		return entries[:1]
	}

	cutoff := r.nowFn().AddDate(0, 0, -r.cfg.RetentionDays)
	cutoffDate := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)

	kept := make([]model.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		d, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			r.log.Warn("history entry has unparseable date, keeping",
				zap.String("test_name", e.TestName),
				zap.String("date", e.Date),
			)
			kept = append(kept, e)
			continue
		}
		if d.Before(cutoffDate) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

func (r *Recorder) write(hist History) error {
	data, err := json.MarshalIndent(hist, "", "  ")
	if err != nil {
		return eris.Wrap(err, "history: marshal")
	}

	path := r.Path()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "history: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return eris.Wrap(err, "history: create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrap(err, "history: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "history: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrapf(err, "history: replace %s", path)
	}
	return nil
}

// LoadFile reads one history file; a missing file is an empty history.
func LoadFile(path string) (History, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return History{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "history: read %s", path)
	}

	var hist History
	if err := json.Unmarshal(data, &hist); err != nil {
		return nil, eris.Wrapf(err, "history: unmarshal %s", path)
	}
	if hist == nil {
		hist = History{}
	}
	return hist, nil
}

// ListModules scans a history directory and returns the module names that
// own a history file, sorted.
func ListModules(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "history: read dir %s", dir)
	}

	var modules []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		modules = append(modules, strings.TrimSuffix(name, FileSuffix))
	}
	sort.Strings(modules)
	return modules, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
