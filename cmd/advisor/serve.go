package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/server"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report API over HTTP",
		Long: `Start the HTTP API.

Endpoints:
  GET  /                      welcome message
  GET  /healthz               liveness
  POST /api/v1/reports        analyze a statement and return the report
  POST /api/v1/reports/start  start an analysis job, returns its job_id
  GET  /api/v1/reports/:id    poll a job

When server.token is set, /api/v1 requires "Authorization: Bearer <token>".
Jobs are kept in memory unless server.job_store is "sqlite".`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().String("job-store", "", "Job store (memory, sqlite)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.job_store", cmd.Flags().Lookup("job-store"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	v := viper.GetViper()

	storeKind := v.GetString("server.job_store")
	if storeKind != "memory" && storeKind != "sqlite" {
		return fmt.Errorf("%w: unknown job store %q", common.ErrInvalidConfig, storeKind)
	}

	a, err := newApp(ctx, v, storeKind == "sqlite")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			slog.Warn("Failed to release resources", "error", cerr)
		}
	}()

	ttl := v.GetDuration("server.job_ttl")
	jobs, stopJobs := newJobStore(ctx, a, storeKind, ttl)
	defer stopJobs()

	srv, err := server.New(a.engine, jobs, server.Config{
		Addr:  v.GetString("server.addr"),
		Token: v.GetString("server.token"),
	}, a.logger)
	if err != nil {
		return err
	}

	slog.Info("Starting API server",
		"addr", v.GetString("server.addr"),
		"job_store", storeKind,
		"backend", a.gateway.BackendName())
	return srv.Run(ctx)
}

// newJobStore returns the configured store and a func that stops its
// expiry loop.
func newJobStore(ctx context.Context, a *app, kind string, ttl time.Duration) (service.JobStore, func()) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if kind == "sqlite" {
		store := analysis.NewSQLiteJobStore(a.db.DB())
		ctx, cancel := context.WithCancel(ctx)
		go expireJobs(ctx, store, ttl, ttl/4)
		return store, cancel
	}
	store := analysis.NewMemoryJobStoreWithTTL(ttl, ttl/4)
	return store, store.Stop
}

func expireJobs(ctx context.Context, store *analysis.SQLiteJobStore, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx, ttl)
			if err != nil {
				slog.Warn("Failed to delete expired jobs", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("Deleted expired jobs", "count", n)
			}
		}
	}
}
