// Package source provides the two sides of a verification run: the jobs
// database, which is the source of truth, and the search index under test.
// Implementations exist for live Postgres and Solr plus a SQLite snapshot
// that can stand in for both during offline verification.
package source

import (
	"context"
	"time"

	"github.com/jobsnprofiles/synccheck/internal/model"
)

// JobSource lists recently modified job records from the system of record.
type JobSource interface {
	// CountCandidates reports how many jobs were modified at or after since.
	CountCandidates(ctx context.Context, since time.Time) (int, error)

	// ListCandidates returns jobs modified at or after since, ordered by id,
	// capped at limit.
	ListCandidates(ctx context.Context, since time.Time, limit int) ([]model.JobRecord, error)
}

// IndexSource fetches the search-index view of jobs by ID. IDs absent from
// the returned map were not found in the index.
type IndexSource interface {
	FetchDocs(ctx context.Context, ids []int64) (map[int64]model.IndexRecord, error)
}
