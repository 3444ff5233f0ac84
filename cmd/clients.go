package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobsnprofiles/synccheck/internal/compare"
	"github.com/jobsnprofiles/synccheck/internal/db"
	"github.com/jobsnprofiles/synccheck/internal/history"
	"github.com/jobsnprofiles/synccheck/internal/report"
	"github.com/jobsnprofiles/synccheck/internal/resilience"
	"github.com/jobsnprofiles/synccheck/internal/source"
	"github.com/jobsnprofiles/synccheck/pkg/solr"
)

// jobsPool connects to the jobs database and verifies connectivity.
func jobsPool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Connect(ctx, cfg.DB.URL, nil)
}

// solrClient builds the Solr client from config.
func solrClient() solr.Client {
	return solr.NewClient(cfg.Solr.BaseURL, cfg.Solr.Core,
		solr.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Solr.TimeoutSecs) * time.Second,
		}),
		solr.WithRateLimit(cfg.Solr.RatePerSec, cfg.Solr.RateBurst),
		solr.WithRetry(resilience.FromRetryConfig(cfg.Solr.RetryMaxAttempts, cfg.Solr.RetryBackoffMs)),
	)
}

// loadRules reads comparison rules from path, falling back to the
// configured path and then to defaults when neither is set.
func loadRules(path string) (compare.Rules, error) {
	if path == "" {
		path = cfg.Rules.Path
	}
	if path == "" {
		return compare.DefaultRules(), nil
	}
	return compare.LoadRules(path)
}

// openSnapshot opens a snapshot file and ensures its schema exists.
func openSnapshot(ctx context.Context, path string) (*source.Snapshot, error) {
	snap, err := source.NewSnapshot(path)
	if err != nil {
		return nil, err
	}
	if err := snap.Migrate(ctx); err != nil {
		snap.Close() //nolint:errcheck
		return nil, err
	}
	return snap, nil
}

// reportPath returns the module's failure report location.
func reportPath() string {
	return filepath.Join(cfg.Report.Dir, cfg.History.Module+report.FileSuffix)
}

// newRecorder builds the history recorder from config.
func newRecorder() *history.Recorder {
	return history.NewRecorder(history.Config{
		Dir:            cfg.History.Dir,
		Module:         cfg.History.Module,
		RetentionDays:  cfg.History.RetentionDays,
		KeepLatestOnly: cfg.History.KeepLatestOnly,
		SampleSize:     cfg.History.SampleSize,
	})
}
