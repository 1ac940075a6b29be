package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/racefuse/internal/datasource"
	"github.com/yourusername/racefuse/internal/health"
	"github.com/yourusername/racefuse/internal/metrics"
	"github.com/yourusername/racefuse/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep price streams open and reconcile on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		metrics.InitRegistry()
		srv := health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Port:        cfg.Metrics.Port,
			MetricsPath: metricsPath(),
			Logger:      appLog,
			Checks:      a.readinessChecks(),
		})
		if err := srv.Start(ctx); err != nil {
			return err
		}

		var wg sync.WaitGroup
		for _, stream := range a.sources.Streams() {
			wg.Add(1)
			go func(s *datasource.PriceStreamClient) {
				defer wg.Done()
				if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					appLog.WithError(err).WithField("provider", s.Name()).Error("Price stream stopped")
				}
			}(stream)
		}
		a.subscribeStreams(ctx, time.Now().UTC())

		var sched *scheduler.Scheduler
		if cfg.Schedule.Enabled {
			sched = scheduler.NewScheduler(a.races, appLog)
			if err := sched.ScheduleReconcile(cfg.Schedule.Reconcile); err != nil {
				return err
			}
			if cfg.Schedule.Results != "" {
				if err := sched.ScheduleResults(cfg.Schedule.Results); err != nil {
					return err
				}
			}
			if err := sched.Start(); err != nil {
				return err
			}
		}

		srv.SetReady(true)
		appLog.WithField("environment", cfg.App.Environment).Info("racefuse serving")

		<-ctx.Done()
		appLog.Info("Shutdown signal received")
		srv.SetReady(false)
		if sched != nil {
			sched.Stop()
		}
		wg.Wait()
		return nil
	},
}

func metricsPath() string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return cfg.Metrics.Path
}

// readinessChecks pings the record store, the snapshot cache and every
// price stream
func (a *app) readinessChecks() map[string]health.Pinger {
	checks := make(map[string]health.Pinger)
	if a.db != nil {
		checks["database"] = a.db
	}
	if a.snapshots != nil {
		checks["redis"] = a.snapshots
	}
	for _, s := range a.sources.Streams() {
		checks[string(s.Name())] = health.PingFunc(func(ctx context.Context) error {
			if !s.IsConnected() {
				last := s.LastMessageTime()
				if last.IsZero() {
					return fmt.Errorf("stream not connected")
				}
				return fmt.Errorf("stream not connected, last message %s ago", time.Since(last).Round(time.Second))
			}
			return nil
		})
	}
	return checks
}

// subscribeStreams asks every price stream for the day's races
func (a *app) subscribeStreams(ctx context.Context, date time.Time) {
	streams := a.sources.Streams()
	if len(streams) == 0 {
		return
	}
	meetings, err := a.sources.Entrants.FetchMeetings(ctx, date)
	if err != nil {
		appLog.WithError(err).Warn("Could not list meetings for price stream subscription")
		return
	}
	for _, m := range meetings {
		keys := m.Keys()
		for _, s := range streams {
			if err := s.Subscribe(keys...); err != nil {
				appLog.WithError(err).WithField("provider", s.Name()).Warn("Price stream subscription failed")
			}
		}
	}
}
