package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/godelegate/internal/discovery"
	"github.com/dbsmedya/godelegate/internal/lock"
)

var (
	watchInterval    time.Duration
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run discovery periodically and serve metrics",
	Long: `Watch runs a discovery sync immediately and then once per interval until
interrupted. Prometheus metrics are served on --metrics-addr.

A sync that fails, or that finds another instance holding the sync lock,
is logged and retried on the next tick.

Example:
  godelegate watch --interval 5m --metrics-addr :9102`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0,
		"Time between syncs (default from watch.interval_seconds)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "",
		"Address for the /metrics endpoint, empty string from config; \"off\" disables it")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	interval := watchInterval
	if interval <= 0 {
		interval = a.cfg.Watch.Interval()
	}
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}
	addr := watchMetricsAddr
	if addr == "" {
		addr = a.cfg.Watch.MetricsAddr
	}

	ctx, cancel := signalContext(cmd, a.log)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orch, err := a.newOrchestrator(discovery.NewMetrics(reg))
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	if addr != "" && addr != "off" {
		srv := newMetricsServer(addr, reg)
		go func() {
			a.log.Infof("Serving metrics on %s/metrics", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Errorf("Metrics server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.log.Infow("Watching", "interval", interval.String(), "store", a.storeName())

	watchLoop(ctx, interval, func(ctx context.Context) {
		err := a.withSyncLock(ctx, false, func() error {
			res, known, err := a.syncOnce(ctx, orch, nil, false)
			if res != nil {
				printRunSummary(outputWriter, res, a.registry)
				printChangeSet(outputWriter, res.ChangeSet, known, a.registry)
			}
			return err
		})
		switch {
		case err == nil, ctx.Err() != nil:
		case errors.Is(err, lock.ErrLockTimeout):
			a.log.Warnf("Sync skipped: %v", err)
		default:
			a.log.Errorf("Sync failed: %v", err)
		}
	})

	a.log.Info("Watch stopped")
	return nil
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// watchLoop runs fn now and then on every tick until ctx is done. Ticks that
// fire while fn is still running are dropped.
func watchLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if ctx.Err() != nil {
		return
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
