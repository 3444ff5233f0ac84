package model

// MismatchCategory classifies why a comparison failed, so downstream triage
// can distinguish sync lag from data mismatches from data-quality problems.
type MismatchCategory string

const (
	CategoryValueMismatch   MismatchCategory = "value_mismatch"
	CategoryMissingValue    MismatchCategory = "missing_value"
	CategorySkillsMissing   MismatchCategory = "skills_missing"
	CategoryMalformedValue  MismatchCategory = "malformed_value"
	CategoryNotFoundInIndex MismatchCategory = "not_found_in_index"
)

// FieldMismatch records one failing field comparison for one job.
// Immutable once created; owned by the aggregated FailureReport.
type FieldMismatch struct {
	JobID           int64            `json:"job_id"`
	FieldName       string           `json:"field_name"`
	Category        MismatchCategory `json:"category"`
	DBValue         string           `json:"db_value"`
	IndexValue      string           `json:"index_value"`
	SourceFieldUsed string           `json:"source_field_used,omitempty"`
	Message         string           `json:"message"`
}

// JobFailure is one report entry: a single job and every field that failed
// on it. Msg joins the per-field diagnostics so consumers that only read
// id, db_title, and msg keep working.
type JobFailure struct {
	ID         int64           `json:"id"`
	DBTitle    string          `json:"db_title"`
	Msg        string          `json:"msg"`
	Mismatches []FieldMismatch `json:"mismatches,omitempty"`
}

// FailureReport aggregates one verification run. It is built fresh each run
// and replaces the previous report file wholesale.
type FailureReport struct {
	TotalJobsAvailable int          `json:"total_jobs_available"`
	TotalJobsChecked   int          `json:"total_jobs_checked"`
	TotalFailures      int          `json:"total_failures"`
	Failures           []JobFailure `json:"failures"`
}

// Passed reports whether the run found no failures.
func (r *FailureReport) Passed() bool {
	return r.TotalFailures == 0
}

// AllMismatches flattens every per-job mismatch in report order.
func (r *FailureReport) AllMismatches() []FieldMismatch {
	var out []FieldMismatch
	for _, f := range r.Failures {
		out = append(out, f.Mismatches...)
	}
	return out
}
