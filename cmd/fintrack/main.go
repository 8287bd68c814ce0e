package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/extract"
	"fintrack/internal/extract/gemini"
	"fintrack/internal/extract/rules"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/pipeline"
	"fintrack/internal/taxonomy"
)

func main() {
	cfg, logger := cli.Bootstrap()

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fintrack stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()
	store := result.Backend

	tax := taxonomy.Default()
	if rows, err := store.ListCategories(ctx); err != nil {
		logger.Warn("Failed to load stored categories, using defaults", log.FieldError, err)
	} else {
		tax.Extend(rows)
	}

	capability, err := newCapability(ctx, cfg)
	if err != nil {
		return err
	}
	extractor := extract.NewExtractor(capability, tax, cfg.ExtractionTimeout)
	resolver := taxonomy.NewResolver(tax, cfg.CategoryMatchThreshold)

	led := ledger.New(store,
		ledger.WithRefreshInterval(cfg.LedgerRefreshInterval),
		ledger.WithLogger(logger))
	pipe := pipeline.New(extractor, resolver, led, pipeline.WithLogger(logger))
	engine := analytics.NewEngine(analytics.Options{
		TopN:             cfg.AnalyticsTopN,
		FixedCVThreshold: cfg.FixedCVThreshold,
		AnomalyStdDevs:   cfg.AnomalyStdDevs,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Submitter:  pipe,
		Ledger:     led,
		Analyzer:   engine,
		Categories: tax,
		Ready: []apphttp.ReadyCheck{{
			Name: "store",
			Check: func(ctx context.Context) error {
				_, err := store.ListCategories(ctx)
				return err
			},
		}},
	}, apphttp.WithLogger(logger), apphttp.WithCurrencySymbol(cfg.CurrencySymbol))

	janitor := cache.NewJanitor(logger, led.RangeCache())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"extractor", cfg.ExtractorBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := janitor.Run(gctx, time.Minute)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newCapability(ctx context.Context, cfg *config.Config) (extract.Capability, error) {
	switch cfg.ExtractorBackend {
	case "gemini":
		c, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("init gemini extractor: %w", err)
		}
		return c, nil
	default:
		return rules.New(), nil
	}
}
