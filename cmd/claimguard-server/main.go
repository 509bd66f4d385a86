package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimguard/claimguard/internal/config"
	"github.com/claimguard/claimguard/internal/domain/claims"
	"github.com/claimguard/claimguard/internal/domain/explain"
	"github.com/claimguard/claimguard/internal/platform/middleware"
	"github.com/claimguard/claimguard/internal/platform/telemetry"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "claimguard-server",
		Short: "Healthcare claims pre-payment validation server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(datasetCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ClaimGuard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a CSV claims file and print a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			outDir, _ := cmd.Flags().GetString("out")
			return runValidate(file, outDir)
		},
	}
	cmd.Flags().String("file", "", "path to the claims CSV file (required)")
	cmd.Flags().String("out", "", "directory to write findings and summary CSVs (optional)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Synthetic dataset utilities",
	}

	genCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic claims dataset with known errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			seed, _ := cmd.Flags().GetInt64("seed")
			return runGenerate(out, seed)
		},
	}
	genCmd.Flags().String("out", "claims.csv", "output CSV path")
	genCmd.Flags().Int64("seed", 42, "random seed for reproducible datasets")
	cmd.AddCommand(genCmd)

	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runValidate(file, outDir string) error {
	logger := newLogger()

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open claims file: %w", err)
	}
	defer f.Close()

	batch, err := claims.ParseCSV(f)
	if err != nil {
		return fmt.Errorf("parse claims file: %w", err)
	}

	validator := claims.NewValidator(logger)
	report := validator.ValidateBatch(batch)

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		findingsPath := filepath.Join(outDir, "findings.csv")
		ff, err := os.Create(findingsPath)
		if err != nil {
			return fmt.Errorf("create findings file: %w", err)
		}
		if err := claims.WriteFindingsCSV(ff, report); err != nil {
			ff.Close()
			return fmt.Errorf("write findings: %w", err)
		}
		ff.Close()

		summaryPath := filepath.Join(outDir, "summary.csv")
		sf, err := os.Create(summaryPath)
		if err != nil {
			return fmt.Errorf("create summary file: %w", err)
		}
		if err := claims.WriteSummaryCSV(sf, report); err != nil {
			sf.Close()
			return fmt.Errorf("write summary: %w", err)
		}
		sf.Close()

		logger.Info().
			Str("findings", findingsPath).
			Str("summary", summaryPath).
			Msg("report written")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report.Summary)
}

func runGenerate(out string, seed int64) error {
	logger := newLogger()

	dataset := claims.GenerateDataset(seed)

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if err := claims.WriteCSV(f, dataset); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	logger.Info().
		Str("path", out).
		Int("claims", len(dataset)).
		Int64("seed", seed).
		Msg("dataset generated")
	return nil
}

func runServer() error {
	// Logger
	logger := newLogger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Telemetry
	monitor := telemetry.NewMonitor()

	// Validation engine
	validator := claims.NewValidator(logger)

	// Explanation pipeline
	cache, err := explain.NewCache(cfg.CacheMaxEntries, cfg.CacheTTL())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create explanation cache")
	}

	var explainer explain.Explainer
	if cfg.ExplainerAPIKey != "" {
		openai, err := explain.NewOpenAIExplainer(explain.OpenAIConfig{
			BaseURL:     cfg.ExplainerBaseURL,
			APIKey:      cfg.ExplainerAPIKey,
			Model:       cfg.ExplainerModel,
			MaxTokens:   cfg.ExplainerMaxTokens,
			Temperature: cfg.ExplainerTemperature,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create explainer")
		}
		explainer = explain.NewFallbackExplainer(openai)
		logger.Info().Str("model", cfg.ExplainerModel).Msg("explanation generation enabled")
	} else {
		explainer = explain.NewFallbackExplainer(explain.DisabledExplainer{})
		logger.Warn().Msg("EXPLAINER_API_KEY not set, serving fallback explanations only")
	}

	orchestrator, err := explain.NewOrchestrator(cache, explainer, cfg.ExplainWorkers, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create orchestrator")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Explanation batches can take minutes when the generator is slow.
	apiV1.Use(middleware.RequestTimeout(5 * time.Minute))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	// Metrics and analytics
	e.GET("/metrics", monitor.PrometheusHandler())
	apiV1.GET("/analytics", monitor.AnalyticsHandler())

	// Domain handlers
	claimsHandler := claims.NewHandler(validator, monitor)
	claimsHandler.RegisterRoutes(apiV1)

	explainHandler := explain.NewHandler(orchestrator, cache, cfg.MaxExplainClaims, monitor)
	explainHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
