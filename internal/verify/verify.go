// Package verify drives one reconciliation pass: it pulls recently modified
// jobs from the database, fetches the matching index documents, runs the
// field checks on each pair, and aggregates everything that disagrees into a
// failure report.
package verify

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jobsnprofiles/synccheck/internal/compare"
	"github.com/jobsnprofiles/synccheck/internal/model"
	"github.com/jobsnprofiles/synccheck/internal/source"
)

const defaultWorkers = 8

// Options tunes a single verification run.
type Options struct {
	// Since is the lower bound of the candidate window.
	Since time.Time

	// Limit caps how many candidates are checked; zero or negative means
	// check every candidate in the window.
	Limit int

	// Workers bounds comparison concurrency; zero picks a default.
	Workers int
}

// Verifier reconciles database job records against their index documents.
type Verifier struct {
	jobs     source.JobSource
	index    source.IndexSource
	registry *compare.Registry
	log      *zap.Logger
}

func New(jobs source.JobSource, index source.IndexSource, registry *compare.Registry) *Verifier {
	return &Verifier{
		jobs:     jobs,
		index:    index,
		registry: registry,
		log:      zap.L().With(zap.String("component", "verifier")),
	}
}

// Run executes one verification pass. A report with failures is still a
// successful run; a non-nil error means the pass itself could not complete
// and the report should be discarded.
func (v *Verifier) Run(ctx context.Context, opts Options) (*model.FailureReport, error) {
	// One id per pass so watch-mode reruns can be told apart in the logs.
	// The id never reaches the report; reruns over the same snapshot must
	// stay byte-identical.
	log := v.log.With(zap.String("run_id", uuid.New().String()))

	available, err := v.jobs.CountCandidates(ctx, opts.Since)
	if err != nil {
		return nil, eris.Wrap(err, "verify: count candidates")
	}

	report := &model.FailureReport{
		TotalJobsAvailable: available,
		Failures:           []model.JobFailure{},
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = available
	}
	if available == 0 || limit == 0 {
		log.Info("no candidates in window", zap.Time("since", opts.Since))
		return report, nil
	}

	jobs, err := v.jobs.ListCandidates(ctx, opts.Since, limit)
	if err != nil {
		return nil, eris.Wrap(err, "verify: list candidates")
	}
	report.TotalJobsChecked = len(jobs)

	ids := make([]int64, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	docs, err := v.index.FetchDocs(ctx, ids)
	if err != nil {
		return nil, eris.Wrap(err, "verify: fetch index docs")
	}

	log.Info("comparing jobs",
		zap.Int("available", available),
		zap.Int("checking", len(jobs)),
		zap.Int("index_docs", len(docs)),
		zap.Time("since", opts.Since),
	)

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)

	var mu sync.Mutex
	var failures []model.JobFailure

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			doc, found := docs[job.ID]
			var mismatches []model.FieldMismatch
			if found {
				mismatches = v.registry.Compare(job, doc)
			} else {
				mismatches = []model.FieldMismatch{compare.MissingIndexRecord(job)}
			}
			if len(mismatches) == 0 {
				return nil
			}

			msgs := make([]string, len(mismatches))
			for i, m := range mismatches {
				msgs[i] = m.Message
				if m.Category == model.CategoryMalformedValue {
					log.Error("malformed field value",
						zap.Int64("job_id", m.JobID),
						zap.String("field", m.FieldName),
						zap.String("db_value", m.DBValue),
						zap.String("index_value", m.IndexValue),
					)
				}
			}

			log.Warn("job failed verification",
				zap.Int64("job_id", job.ID),
				zap.Int("mismatch_count", len(mismatches)),
			)

			mu.Lock()
			failures = append(failures, model.JobFailure{
				ID:         job.ID,
				DBTitle:    job.Title,
				Msg:        strings.Join(msgs, "; "),
				Mismatches: mismatches,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].ID < failures[j].ID })
	report.Failures = failures
	report.TotalFailures = len(failures)

	log.Info("verification finished",
		zap.Int("total_jobs_available", report.TotalJobsAvailable),
		zap.Int("total_jobs_checked", report.TotalJobsChecked),
		zap.Int("total_failures", report.TotalFailures),
	)
	return report, nil
}
