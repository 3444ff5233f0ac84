package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/alert"
	"github.com/jobsnprofiles/synccheck/internal/server"
	"github.com/jobsnprofiles/synccheck/internal/source"
	"github.com/jobsnprofiles/synccheck/internal/verify"
)

var (
	servePort  int
	serveWatch string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification history API",
	Long:  "Read-only HTTP API over run history and failure reports, with an optional cron schedule that re-runs verification in process.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		watch := serveWatch
		if watch == "" {
			watch = cfg.Server.Watch
		}
		if watch != "" {
			if err := cfg.Validate("verify"); err != nil {
				return err
			}

			c := cron.New()
			if _, err := c.AddFunc(watch, func() { watchRun(ctx) }); err != nil {
				return eris.Wrapf(err, "serve: parse watch spec %q", watch)
			}
			c.Start()
			defer c.Stop()

			zap.L().Info("watch schedule registered", zap.String("spec", watch))

			// Run immediately so the dashboard has data before the
			// first tick.
			go watchRun(ctx)
		}

		srv := server.New(server.Config{
			HistoryDir: cfg.History.Dir,
			ReportDir:  cfg.Report.Dir,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// watchRun executes one scheduled verification pass under the configured
// run timeout. Failures are logged so the serve loop keeps running.
func watchRun(ctx context.Context) {
	log := zap.L().With(zap.String("command", "serve.watch"))

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.RunTimeoutSecs)*time.Second)
	defer cancel()

	pool, err := jobsPool(runCtx)
	if err != nil {
		log.Error("scheduled run: connect database", zap.Error(err))
		return
	}
	defer pool.Close()

	rules, err := loadRules("")
	if err != nil {
		log.Error("scheduled run: load rules", zap.Error(err))
		return
	}

	opts := verify.Options{
		Since:   time.Now().UTC().Add(-time.Duration(cfg.Verify.WindowHours) * time.Hour),
		Limit:   cfg.Verify.Limit,
		Workers: cfg.Verify.Workers,
	}

	jobsSrc := source.NewPostgres(pool)
	indexSrc := source.NewSolr(solrClient(), cfg.Solr.BatchSize)

	rep, err := runVerification(runCtx, jobsSrc, indexSrc, rules, opts, true)
	if err != nil {
		log.Error("scheduled run failed", zap.Error(err))
		return
	}

	log.Info("scheduled run complete",
		zap.Int("checked", rep.TotalJobsChecked),
		zap.Int("failures", rep.TotalFailures),
	)

	alerter := alert.NewAlerter(cfg.Alert, cfg.History.TestName)
	if alerts := alerter.Evaluate(rep); len(alerts) > 0 {
		sent := alerter.SendAlerts(runCtx, alerts)
		log.Info("alerts evaluated", zap.Int("raised", len(alerts)), zap.Int("sent", sent))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "cron spec for periodic verification runs, e.g. \"@every 1h\"")
	rootCmd.AddCommand(serveCmd)
}
