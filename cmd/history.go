package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/jobsnprofiles/synccheck/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and prune run history",
	Long:  "Commands for listing recorded verification runs and applying the retention policy outside a run.",
}

// -- history show --

var (
	historyShowModule string
	historyShowTest   string
	historyShowJSON   bool
)

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recorded runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		module := historyShowModule
		if module == "" {
			module = cfg.History.Module
		}

		path := filepath.Join(cfg.History.Dir, module+history.FileSuffix)
		hist, err := history.LoadFile(path)
		if err != nil {
			return err
		}
		if len(hist) == 0 {
			fmt.Fprintln(os.Stderr, "No history recorded.")
			return nil
		}

		if historyShowTest != "" {
			entries, ok := hist[historyShowTest]
			if !ok {
				return eris.Errorf("history: no entries for test case %q", historyShowTest)
			}
			hist = history.History{historyShowTest: entries}
		}

		if historyShowJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(hist)
		}

		formatHistory(os.Stdout, hist)
		return nil
	},
}

// -- history prune --

var (
	historyPruneModule string
	historyPruneKeep   bool
)

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy to stored history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		hcfg := history.Config{
			Dir:            cfg.History.Dir,
			Module:         cfg.History.Module,
			RetentionDays:  cfg.History.RetentionDays,
			KeepLatestOnly: cfg.History.KeepLatestOnly || historyPruneKeep,
			SampleSize:     cfg.History.SampleSize,
		}
		if historyPruneModule != "" {
			hcfg.Module = historyPruneModule
		}

		removed, err := history.NewRecorder(hcfg).Prune()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Pruned %d entries from %s\n", removed, hcfg.Module)
		return nil
	},
}

// formatHistory writes history entries to out, most recent first per test.
func formatHistory(out io.Writer, hist history.History) {
	tests := make([]string, 0, len(hist))
	for test := range hist {
		tests = append(tests, test)
	}
	sort.Strings(tests)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TEST\tDATE\tTIME\tSTATUS\tTOTAL\tERRORS")
	_, _ = fmt.Fprintln(w, "----\t----\t----\t------\t-----\t------")

	for _, test := range tests {
		for _, e := range hist[test] {
			// Datetime is "2006-01-02 15:04:05"; the date column already
			// shows the day.
			clock := e.Datetime
			if len(clock) > 11 {
				clock = clock[11:]
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
				test, e.Date, clock, e.Status, e.TotalJobs, e.ErrorJobsCount)
		}
	}
	_ = w.Flush()
}

func init() {
	historyShowCmd.Flags().StringVar(&historyShowModule, "module", "", "module name (default from config)")
	historyShowCmd.Flags().StringVar(&historyShowTest, "test", "", "show a single test case")
	historyShowCmd.Flags().BoolVar(&historyShowJSON, "json", false, "print raw JSON")
	historyPruneCmd.Flags().StringVar(&historyPruneModule, "module", "", "module name (default from config)")
	historyPruneCmd.Flags().BoolVar(&historyPruneKeep, "keep-latest-only", false, "collapse history to the most recent entry per test")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
