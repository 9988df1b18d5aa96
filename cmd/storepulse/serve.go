package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storepulse/internal/api"
	"storepulse/internal/export"
	"storepulse/internal/jobs"
	"storepulse/internal/mw"
	"storepulse/internal/notification"
)

const (
	shutdownTimeout = 5 * time.Second
	visitorIdle     = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the report workers.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(cmd.Context(), a)
	},
}

func serve(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger := a.cfg, a.logger
	orch := jobs.NewOrchestrator(a.store, cfg.Report, logger)

	var waitWorkers func()
	switch cfg.Queue.Backend {
	case "redis":
		client, err := jobs.NewRedisClient(ctx, cfg.Queue)
		if err != nil {
			return err
		}
		defer client.Close()
		q := jobs.NewRedisQueue(client, cfg.Queue, orch.Run, logger)
		q.Start(ctx)
		orch.SetDispatcher(q)
		waitWorkers = q.Wait
	default:
		pool := jobs.NewPool(cfg.Queue, orch.Run, logger)
		pool.OnDrain(orch.Abandon)
		pool.Start(ctx)
		orch.SetDispatcher(pool)
		waitWorkers = pool.Wait
	}
	logger.Info("report workers started", zap.String("backend", cfg.Queue.Backend), zap.Int("workers", cfg.Queue.Workers))

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = notification.Options(cfg.Push)
		wp := notification.NewWorkerPool(cfg.WorkerPool.Size, a.store, webpushOptions, logger)
		wp.Start(ctx)
		orch.SetNotifier(wp)
	} else {
		logger.Warn("VAPID keys not configured, completion pushes disabled")
	}

	materializer, err := export.NewMaterializer(a.store, cfg.Export, logger)
	if err != nil {
		return err
	}

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Evict(visitorIdle)
			case <-ctx.Done():
				return
			}
		}
	}()

	handler := api.NewHandler(orch, materializer, a.store, webpushOptions, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, limiter, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping services")
	}

	return shutdown(server, shutdownTimeout, stop, waitWorkers, logger)
}

// shutdown drains the HTTP server, then stops the report workers and waits
// for them even when the server did not drain in time.
func shutdown(server *http.Server, timeout time.Duration, stop, waitWorkers func(), logger *zap.Logger) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var shutdownErr error
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
		shutdownErr = fmt.Errorf("HTTP server shutdown: %w", err)
	}

	stop()
	waitWorkers()
	if shutdownErr != nil {
		return shutdownErr
	}
	logger.Info("server gracefully stopped")
	return nil
}
