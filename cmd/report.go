package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect the failure report",
	Long:  "Commands for viewing, categorizing, and exporting the current failure report.",
}

var reportFile string

// currentReportPath resolves --file against the configured location.
func currentReportPath() string {
	if reportFile != "" {
		return reportFile
	}
	return reportPath()
}

// -- report show --

var reportShowJSON bool

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current failure report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rep, err := report.Read(currentReportPath())
		if err != nil {
			return err
		}

		if reportShowJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}

		formatReportSummary(os.Stdout, rep)
		if len(rep.Failures) > 0 {
			fmt.Fprintln(os.Stdout)
			formatFailures(os.Stdout, rep.Failures)
		}
		return nil
	},
}

// -- report categorize --

var reportCategorizeJSON bool

var reportCategorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Break the report down by category and field",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rep, err := report.Read(currentReportPath())
		if err != nil {
			return err
		}

		b := report.Categorize(rep)

		if reportCategorizeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		}

		formatBreakdown(os.Stdout, b)
		return nil
	},
}

// -- report export --

var reportExportOut string

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the report as a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rep, err := report.Read(currentReportPath())
		if err != nil {
			return err
		}

		out := reportExportOut
		if out == "" {
			out = cfg.History.Module + "_failures.xlsx"
		}

		if err := report.ExportXLSX(rep, out); err != nil {
			return err
		}

		zap.L().Info("report exported",
			zap.String("file", out),
			zap.Int("failures", rep.TotalFailures),
		)
		fmt.Fprintf(os.Stdout, "Exported %s\n", out)
		return nil
	},
}

// formatBreakdown writes category and field tallies to out.
func formatBreakdown(out io.Writer, b report.Breakdown) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Jobs checked:\t%d\n", b.TotalJobsChecked)
	_, _ = fmt.Fprintf(w, "Failures:\t%d\n", b.TotalFailures)
	_, _ = fmt.Fprintf(w, "Mismatches:\t%d\n", b.TotalMismatches)
	_ = w.Flush()

	if len(b.ByCategory) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CATEGORY\tCOUNT")
		_, _ = fmt.Fprintln(w, "--------\t-----")
		for _, c := range b.Categories() {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", c, b.ByCategory[c])
		}
		_ = w.Flush()
	}

	if len(b.ByField) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "FIELD\tCOUNT")
		_, _ = fmt.Fprintln(w, "-----\t-----")
		for _, f := range b.Fields() {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", f, b.ByField[f])
		}
		_ = w.Flush()
	}
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportFile, "file", "", "report file (default from config)")
	reportShowCmd.Flags().BoolVar(&reportShowJSON, "json", false, "print raw JSON")
	reportCategorizeCmd.Flags().BoolVar(&reportCategorizeJSON, "json", false, "print raw JSON")
	reportExportCmd.Flags().StringVar(&reportExportOut, "out", "", "output .xlsx path (default <module>_failures.xlsx)")

	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportCategorizeCmd)
	reportCmd.AddCommand(reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}
