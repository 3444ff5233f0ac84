package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/jobsnprofiles/synccheck/internal/source"
	"github.com/jobsnprofiles/synccheck/internal/verify"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture and inspect offline verification snapshots",
	Long:  "A snapshot stores one window of database candidates and their index documents in a local SQLite file, so a run can be replayed or triaged without touching production.",
}

// -- snapshot capture --

var (
	snapshotCaptureFile   string
	snapshotCaptureWindow int
	snapshotCaptureLimit  int
)

var snapshotCaptureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the current window into a snapshot file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("capture"); err != nil {
			return err
		}

		file := snapshotCaptureFile
		if file == "" {
			file = cfg.Snapshot.Path
		}
		windowHours := snapshotCaptureWindow
		if windowHours == 0 {
			windowHours = cfg.Verify.WindowHours
		}
		limit := snapshotCaptureLimit
		if limit == 0 {
			limit = cfg.Verify.Limit
		}

		pool, err := jobsPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		snap, err := openSnapshot(ctx, file)
		if err != nil {
			return err
		}
		defer snap.Close() //nolint:errcheck

		since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
		jobsSrc := source.NewPostgres(pool)
		indexSrc := source.NewSolr(solrClient(), cfg.Solr.BatchSize)

		meta, err := verify.Capture(ctx, jobsSrc, indexSrc, snap, since, limit)
		if err != nil {
			return err
		}

		formatSnapshotMeta(os.Stdout, file, meta)
		return nil
	},
}

// -- snapshot info --

var snapshotInfoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Show what a snapshot file contains",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		file := cfg.Snapshot.Path
		if len(args) == 1 {
			file = args[0]
		}
		if _, err := os.Stat(file); err != nil {
			return eris.Wrapf(err, "snapshot: stat %s", file)
		}

		snap, err := openSnapshot(ctx, file)
		if err != nil {
			return err
		}
		defer snap.Close() //nolint:errcheck

		meta, err := snap.Meta(ctx)
		if err != nil {
			return err
		}
		if meta == nil {
			fmt.Fprintln(os.Stderr, "Snapshot holds no captured data.")
			return nil
		}

		formatSnapshotMeta(os.Stdout, file, meta)
		return nil
	},
}

// formatSnapshotMeta writes a snapshot summary table to out.
func formatSnapshotMeta(out io.Writer, file string, meta *source.SnapshotMeta) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "File:\t%s\n", file)
	_, _ = fmt.Fprintf(w, "Snapshot:\t%s\n", meta.ID)
	_, _ = fmt.Fprintf(w, "Captured:\t%s\n", meta.CapturedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Window since:\t%s\n", meta.Since.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Jobs:\t%d\n", meta.JobCount)
	_, _ = fmt.Fprintf(w, "Index docs:\t%d\n", meta.DocCount)
	_ = w.Flush()
}

func init() {
	snapshotCaptureCmd.Flags().StringVar(&snapshotCaptureFile, "file", "", "snapshot file path (default from config)")
	snapshotCaptureCmd.Flags().IntVar(&snapshotCaptureWindow, "window", 0, "candidate window in hours (default from config)")
	snapshotCaptureCmd.Flags().IntVar(&snapshotCaptureLimit, "limit", 0, "max jobs to capture, 0 captures all candidates")

	snapshotCmd.AddCommand(snapshotCaptureCmd)
	snapshotCmd.AddCommand(snapshotInfoCmd)
	rootCmd.AddCommand(snapshotCmd)
}
