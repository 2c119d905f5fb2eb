package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"webpush-notification/internal/config"
	"webpush-notification/internal/handler"
	"webpush-notification/internal/queue"
	"webpush-notification/internal/worker"
)

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := newLogger(cfg.Log)

	// 2. Queue
	var q queue.Queue
	switch cfg.Queue.Backend {
	case config.BackendRedis:
		logger.Info().Str("addr", cfg.Redis.Addr).Str("key", cfg.Queue.Key).Msg("using redis queue")
		rdb := queue.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		defer rdb.Close()
		q = queue.NewRedisQueue(rdb, cfg.Queue.Key, logger)
	default:
		logger.Info().Int("size", cfg.Queue.Size).Msg("using in-memory queue")
		q = queue.NewMemoryQueue(cfg.Queue.Size)
	}

	// 3. Dispatcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := worker.NewDispatcher(cfg.Worker.PoolSize, q, worker.NewLogSender(logger), logger)
	d.Run(ctx)

	// 4. HTTP
	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.Burst)
	}
	router := handler.NewRouter(handler.NewNotifyHandler(q, limiter, logger))
	root := h.RecoveryHandler(h.PrintRecoveryStack(true))(handler.Logging(logger)(router))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("web push intake listening (POST /notify)")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	cancel()
	d.Wait()
	logger.Info().Msg("dispatcher stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	return newLoggerTo(os.Stdout, cfg)
}

func newLoggerTo(out io.Writer, cfg config.LogConfig) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}
