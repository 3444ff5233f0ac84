package model

// TestStatus is the recorded outcome of one verification run.
type TestStatus string

const (
	StatusPass TestStatus = "PASS"
	StatusFail TestStatus = "FAIL"
)

// HistoryEntry is one persisted summary of a verification run, used for
// trend display. ErrorJobs carries a truncated sample of the run's
// mismatches, not the full list; the failure report holds those.
type HistoryEntry struct {
	TestName       string          `json:"test_name"`
	Status         TestStatus      `json:"status"`
	Date           string          `json:"date"`
	Datetime       string          `json:"datetime"`
	TotalJobs      int             `json:"total_jobs"`
	ErrorJobsCount int             `json:"error_jobs_count"`
	ErrorJobs      []FieldMismatch `json:"error_jobs"`
	FailureMessage string          `json:"failure_message"`
}
