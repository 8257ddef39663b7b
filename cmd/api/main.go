package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-insights/internal/advice"
	"github.com/dvloznov/finance-insights/internal/alerts"
	"github.com/dvloznov/finance-insights/internal/anomaly"
	"github.com/dvloznov/finance-insights/internal/api"
	"github.com/dvloznov/finance-insights/internal/api/handlers"
	"github.com/dvloznov/finance-insights/internal/config"
	"github.com/dvloznov/finance-insights/internal/documents"
	"github.com/dvloznov/finance-insights/internal/gemini"
	"github.com/dvloznov/finance-insights/internal/jobs/inmemory"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/workspace"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewFromConfig(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log = logger.New()
		log.Fatal().Err(err).Msg("Invalid logger configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Initialize collaborators
	genClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	fetcher, closeStore := newFetcher(ctx, cfg, log)
	defer closeStore()

	ingester := pipeline.NewIngester(fetcher, pipeline.NewGeminiParser(genClient), log)
	adviser := advice.NewGeminiAdviser(genClient)

	notifier, closeNotifier := newNotifier(cfg, log)
	defer closeNotifier()

	ws := workspace.New(ingester, adviser, notifier, log, workspace.Options{
		Detector: anomaly.Detector{
			Threshold:    cfg.AnomalyThreshold,
			MinGroupSize: cfg.AnomalyMinGroupSize,
		},
		AdviceTopN:       cfg.AdviceTopN,
		ProgressInterval: cfg.ProgressInterval,
	})

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.JobQueueSize, jobStore, log)

	validate := handlers.NewValidator()
	statementsHandler := handlers.NewStatementsHandler(ws, jobQueue, jobStore, validate, cfg.MaxUploadBytes, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, statementsHandler.Process); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	router := api.NewRouter(api.Handlers{
		Transactions: handlers.NewTransactionsHandler(ws, validate, log),
		Statements:   statementsHandler,
		Jobs:         handlers.NewJobsHandler(jobStore, log),
		Insights:     handlers.NewInsightsHandler(ws, validate, log),
	}, log)

	// Create HTTP server. Advice calls can take a while, so writes get more room.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("model", genClient.Model()).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

// newFetcher returns a statement fetcher backed by Cloud Storage when a
// client can be created, and by the local filesystem only otherwise.
func newFetcher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*documents.Fetcher, func()) {
	gcs, err := documents.NewGCSStore(ctx, cfg.GoogleCredentialsFile)
	if err != nil {
		log.Warn().Err(err).Msg("Cloud Storage unavailable - gs:// statements will be rejected")
		return documents.NewFetcher(nil), func() {}
	}

	return documents.NewFetcher(gcs), func() {
		if err := gcs.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Cloud Storage client")
		}
	}
}

// newNotifier always logs alert batches and also publishes them to AMQP
// when AMQP_URL is configured.
func newNotifier(cfg *config.Config, log zerolog.Logger) (alerts.Notifier, func()) {
	logNotifier := alerts.NewLogNotifier(log)
	if cfg.AMQPURL == "" {
		return logNotifier, func() {}
	}

	amqpNotifier, err := alerts.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect alert publisher")
	}

	return alerts.Multi{logNotifier, amqpNotifier}, func() {
		if err := amqpNotifier.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close alert publisher")
		}
	}
}
