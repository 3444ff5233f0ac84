package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/compare"
	"github.com/jobsnprofiles/synccheck/internal/model"
	"github.com/jobsnprofiles/synccheck/internal/report"
	"github.com/jobsnprofiles/synccheck/internal/source"
	"github.com/jobsnprofiles/synccheck/internal/verify"
)

var (
	verifyWindow    int
	verifyLimit     int
	verifyWorkers   int
	verifySnapshot  string
	verifyRules     string
	verifyNoHistory bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify job records against the Solr index",
	Long:  "Lists recently modified jobs from the database, fetches their Solr documents, compares them field by field, writes the failure report, and records run history.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mode := "verify"
		if verifySnapshot != "" {
			mode = "offline"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		rules, err := loadRules(verifyRules)
		if err != nil {
			return err
		}

		windowHours := verifyWindow
		if windowHours == 0 {
			windowHours = cfg.Verify.WindowHours
		}
		limit := verifyLimit
		if limit == 0 {
			limit = cfg.Verify.Limit
		}
		workers := verifyWorkers
		if workers == 0 {
			workers = cfg.Verify.Workers
		}

		opts := verify.Options{
			Since:   time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour),
			Limit:   limit,
			Workers: workers,
		}

		var (
			jobsSrc  source.JobSource
			indexSrc source.IndexSource
		)

		if verifySnapshot != "" {
			snap, err := openSnapshot(ctx, verifySnapshot)
			if err != nil {
				return err
			}
			defer snap.Close() //nolint:errcheck

			meta, err := snap.Meta(ctx)
			if err != nil {
				return err
			}
			if meta == nil {
				return eris.Errorf("verify: snapshot %s holds no captured data", verifySnapshot)
			}
			// A snapshot replays its own capture window unless one was
			// given explicitly.
			if verifyWindow == 0 {
				opts.Since = meta.Since
			}
			zap.L().Info("verifying from snapshot",
				zap.String("file", verifySnapshot),
				zap.String("snapshot_id", meta.ID),
				zap.Time("captured_at", meta.CapturedAt),
			)
			jobsSrc, indexSrc = snap, snap
		} else {
			pool, err := jobsPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			jobsSrc = source.NewPostgres(pool)
			indexSrc = source.NewSolr(solrClient(), cfg.Solr.BatchSize)
		}

		rep, err := runVerification(ctx, jobsSrc, indexSrc, rules, opts, !verifyNoHistory)
		if err != nil {
			return err
		}

		formatReportSummary(os.Stdout, rep)
		fmt.Fprintf(os.Stdout, "\nReport written to %s\n", reportPath())

		// A completed run with mismatches still exits non-zero so cron
		// and CI callers can tell PASS from FAIL without parsing files.
		if !rep.Passed() {
			cmd.SilenceUsage = true
			return eris.Errorf("verify: %d of %d checked job(s) failed the sync check", rep.TotalFailures, rep.TotalJobsChecked)
		}
		return nil
	},
}

// runVerification executes one end-to-end pass: compare, write the
// failure report, record history. The run outcome lands in those
// artifacts; an error return means the pass itself could not complete.
func runVerification(ctx context.Context, jobs source.JobSource, index source.IndexSource, rules compare.Rules, opts verify.Options, recordHistory bool) (*model.FailureReport, error) {
	v := verify.New(jobs, index, compare.NewRegistry(rules))
	rep, err := v.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := report.Write(rep, reportPath()); err != nil {
		return nil, err
	}

	if recordHistory {
		entry, err := newRecorder().Record(rep, cfg.History.TestName)
		if err != nil {
			return nil, err
		}
		zap.L().Info("history recorded",
			zap.String("test_name", entry.TestName),
			zap.String("status", string(entry.Status)),
		)
	}

	return rep, nil
}

// formatReportSummary writes a run summary table to out.
func formatReportSummary(out io.Writer, rep *model.FailureReport) {
	status := model.StatusPass
	if !rep.Passed() {
		status = model.StatusFail
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Jobs available:\t%d\n", rep.TotalJobsAvailable)
	_, _ = fmt.Fprintf(w, "Jobs checked:\t%d\n", rep.TotalJobsChecked)
	_, _ = fmt.Fprintf(w, "Failures:\t%d\n", rep.TotalFailures)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", status)
	_ = w.Flush()
}

// formatFailures writes the per-job failure table to out.
func formatFailures(out io.Writer, failures []model.JobFailure) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB_ID\tTITLE\tFIELDS\tMESSAGE")
	_, _ = fmt.Fprintln(w, "------\t-----\t------\t-------")

	for _, f := range failures {
		fields := make([]string, 0, len(f.Mismatches))
		for _, m := range f.Mismatches {
			if m.FieldName != "" {
				fields = append(fields, m.FieldName)
			}
		}

		title := f.DBTitle
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		msg := f.Msg
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", f.ID, title, strings.Join(fields, ","), msg)
	}
	_ = w.Flush()
}

func init() {
	verifyCmd.Flags().IntVar(&verifyWindow, "window", 0, "candidate window in hours (default from config)")
	verifyCmd.Flags().IntVar(&verifyLimit, "limit", 0, "max jobs to check, 0 checks all candidates")
	verifyCmd.Flags().IntVar(&verifyWorkers, "workers", 0, "comparison workers (default from config)")
	verifyCmd.Flags().StringVar(&verifySnapshot, "snapshot", "", "verify offline from a captured snapshot file")
	verifyCmd.Flags().StringVar(&verifyRules, "rules", "", "comparison rules file (default from config)")
	verifyCmd.Flags().BoolVar(&verifyNoHistory, "no-history", false, "skip recording the run in history")
	rootCmd.AddCommand(verifyCmd)
}
