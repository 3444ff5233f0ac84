package verify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/model"
	"github.com/jobsnprofiles/synccheck/internal/source"
)

// Capture copies one candidate window from the live sources into a snapshot
// store so the run can be replayed offline. The snapshot must already be
// migrated.
func Capture(ctx context.Context, jobs source.JobSource, index source.IndexSource, snap *source.Snapshot, since time.Time, limit int) (*source.SnapshotMeta, error) {
	available, err := jobs.CountCandidates(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "capture: count candidates")
	}
	if limit <= 0 {
		limit = available
	}

	var records []model.JobRecord
	if limit > 0 {
		records, err = jobs.ListCandidates(ctx, since, limit)
		if err != nil {
			return nil, eris.Wrap(err, "capture: list candidates")
		}
	}

	ids := make([]int64, len(records))
	for i, j := range records {
		ids[i] = j.ID
	}
	docs, err := index.FetchDocs(ctx, ids)
	if err != nil {
		return nil, eris.Wrap(err, "capture: fetch index docs")
	}

	if err := snap.WriteJobs(ctx, records); err != nil {
		return nil, err
	}
	if err := snap.WriteDocs(ctx, docs); err != nil {
		return nil, err
	}
	meta, err := snap.WriteMeta(ctx, since, len(records), len(docs))
	if err != nil {
		return nil, err
	}

	zap.L().Info("snapshot captured",
		zap.String("snapshot_id", meta.ID),
		zap.Int("jobs", meta.JobCount),
		zap.Int("index_docs", meta.DocCount),
		zap.Time("since", since),
	)
	return meta, nil
}
