// Command counselor serves the study-abroad decision core over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/barathraj048/Ai-counsler/internal/api"
	"github.com/barathraj048/Ai-counsler/internal/config"
	"github.com/barathraj048/Ai-counsler/internal/core"
	"github.com/barathraj048/Ai-counsler/internal/escalation"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/provenance"
	"github.com/barathraj048/Ai-counsler/internal/session"
)

// #region main
func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("counselor stopped", zap.Error(err))
		os.Exit(1)
	}
}

// #endregion main

// #region run
func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, closeTransport, err := newTransport(ctx, cfg.Oracle)
	if err != nil {
		return err
	}
	defer closeTransport()

	var client *oracle.Client
	if transport != nil {
		client = oracle.NewClient(transport, cfg.ClientConfig(), logger)
		logger.Info("oracle transport ready", zap.String("transport", cfg.Oracle.Transport))
	} else {
		logger.Info("oracle offline, deterministic fallbacks only")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}
	store, err := session.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	decisions, err := provenance.New(store.DB())
	if err != nil {
		return err
	}

	opts := core.Options{
		Policy:      cfg.Interview,
		Rank:        cfg.Shortlist,
		TrendWindow: cfg.TrendWindow,
		HookTimeout: cfg.HookTimeout,
		Hooks:       []core.Hook{core.ProvenanceHook(decisions)},
		Logger:      logger,
	}
	if cfg.KeywordsPath != "" {
		kw, err := escalation.LoadKeywords(cfg.KeywordsPath)
		if err != nil {
			return err
		}
		logger.Info("distress keywords loaded", zap.String("path", cfg.KeywordsPath), zap.Int("phrases", kw.Len()))
		opts.Keywords = &kw
	}

	c, err := core.New(store, client, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewHandler(c, logger).Router(cfg.ServeMetrics),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}
	stop()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := c.Close(shutdownCtx); err != nil {
		logger.Warn("hooks still running at shutdown", zap.Error(err))
	}
	return nil
}

// #endregion run

// #region wiring

// newTransport builds the configured oracle transport. Offline returns a nil
// transport, which leaves every decision on its deterministic path.
func newTransport(ctx context.Context, oc config.OracleConfig) (oracle.Transport, func(), error) {
	noop := func() {}
	switch oc.Transport {
	case config.TransportGRPC:
		t, err := oracle.NewGRPCTransport(oc.GRPCAddr)
		if err != nil {
			return nil, noop, err
		}
		return t, func() { _ = t.Close() }, nil
	case config.TransportOpenAI:
		t, err := oracle.NewOpenAITransport(oracle.OpenAIConfig{
			APIKey:      oc.APIKey,
			BaseURL:     oc.OpenAIBaseURL,
			Model:       oc.OpenAIModel,
			Temperature: float32(oc.Temperature),
		})
		if err != nil {
			return nil, noop, err
		}
		return t, noop, nil
	case config.TransportGenAI:
		t, err := oracle.NewGenAITransport(ctx, oracle.GenAIConfig{
			APIKey:      oc.APIKey,
			Model:       oc.GenAIModel,
			Temperature: float32(oc.Temperature),
		})
		if err != nil {
			return nil, noop, err
		}
		return t, noop, nil
	default:
		return nil, noop, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

// #endregion wiring
