package report

import (
	"sort"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

// Breakdown groups a report's mismatches for triage: a spike in one category
// usually points at a single pipeline bug rather than scattered data drift.
type Breakdown struct {
	TotalJobsChecked int                            `json:"total_jobs_checked"`
	TotalFailures    int                            `json:"total_failures"`
	TotalMismatches  int                            `json:"total_mismatches"`
	ByCategory       map[model.MismatchCategory]int `json:"by_category"`
	ByField          map[string]int                 `json:"by_field"`
}

// Categorize tallies the report's mismatches by category and by field.
func Categorize(r *model.FailureReport) Breakdown {
	b := Breakdown{
		TotalJobsChecked: r.TotalJobsChecked,
		TotalFailures:    r.TotalFailures,
		ByCategory:       make(map[model.MismatchCategory]int),
		ByField:          make(map[string]int),
	}
	for _, m := range r.AllMismatches() {
		b.TotalMismatches++
		b.ByCategory[m.Category]++
		if m.FieldName != "" {
			b.ByField[m.FieldName]++
		}
	}
	return b
}

// Categories returns the breakdown's categories sorted by descending count,
// ties broken by name so output is stable.
func (b Breakdown) Categories() []model.MismatchCategory {
	cats := make([]model.MismatchCategory, 0, len(b.ByCategory))
	for c := range b.ByCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if b.ByCategory[cats[i]] != b.ByCategory[cats[j]] {
			return b.ByCategory[cats[i]] > b.ByCategory[cats[j]]
		}
		return cats[i] < cats[j]
	})
	return cats
}

// Fields returns the breakdown's field names sorted by descending count,
// ties broken by name.
func (b Breakdown) Fields() []string {
	fields := make([]string, 0, len(b.ByField))
	for f := range b.ByField {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		if b.ByField[fields[i]] != b.ByField[fields[j]] {
			return b.ByField[fields[i]] > b.ByField[fields[j]]
		}
		return fields[i] < fields[j]
	})
	return fields
}
