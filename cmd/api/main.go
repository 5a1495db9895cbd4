package main

import (
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Kewen526/serv-qoute/internal/client/keer"
	"github.com/Kewen526/serv-qoute/internal/client/servicepoints"
	"github.com/Kewen526/serv-qoute/internal/env"
	"github.com/Kewen526/serv-qoute/internal/imaging"
	"github.com/Kewen526/serv-qoute/internal/matcher"
	"github.com/Kewen526/serv-qoute/internal/ratelimiter"
	"github.com/Kewen526/serv-qoute/internal/service"
	"github.com/Kewen526/serv-qoute/internal/worker"
)

const version = "0.0.0"

//	@title			Serv Quote
//	@description	Quotation sync service between the Keer task store and Service Points

//	@contact.name	API Support

// @BasePath	/api/v1
func main() {
	_ = godotenv.Load()

	cfg := config{
		addr:   env.GetString("ADDR", ":8080"),
		apiURL: env.GetString("EXTERNAL_URL", "localhost:8080"),
		env:    env.GetString("ENV", "development"),
		rateLimiter: ratelimiter.Config{
			RequestsPerTimeFrame: env.GetInt("RATELIMITER_REQUESTS_COUNT", 20),
			TimeFrame:            time.Second * 5,
			Enabled:              env.GetBool("RATE_LIMITER_ENABLED", true),
		},
		servicePoints: servicePointsConfig{
			BaseURL: env.GetString("SP_BASE_URL", ""),
			APIKey:  env.GetString("SP_API_KEY", ""),
		},
		keerURL: env.GetString("KEER_API_URL", ""),
		sweep: sweepConfig{
			StoreCode:    env.GetString("STORE_CODE", "SP00001"),
			IdleInterval: time.Duration(env.GetInt("SWEEP_IDLE_INTERVAL_SECONDS", 30)) * time.Second,
			TaskPause:    time.Duration(env.GetInt("TASK_PAUSE_SECONDS", 3)) * time.Second,
		},
		imageMaxRetries: env.GetInt("IMAGE_MAX_RETRIES", 3),
	}

	// logger
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	if cfg.keerURL == "" {
		logger.Fatal("KEER_API_URL is required")
	}
	if cfg.servicePoints.BaseURL == "" || cfg.servicePoints.APIKey == "" {
		logger.Fatal("SP_BASE_URL and SP_API_KEY are required")
	}

	// rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// remote clients
	keerClient := keer.New(keer.Config{
		BaseURL: cfg.keerURL,
		Logger:  logger,
	})

	spClient := servicepoints.New(servicepoints.Config{
		BaseURL: cfg.servicePoints.BaseURL,
		APIKey:  cfg.servicePoints.APIKey,
		Logger:  logger,
	})

	productMatcher := matcher.New(keerClient, spClient, logger)

	normalizer := imaging.NewNormalizer(imaging.Config{
		MaxRetries: cfg.imageMaxRetries,
		Logger:     logger,
	})

	quotationPipeline := service.NewQuotationPipeline(
		keerClient,
		spClient,
		productMatcher,
		normalizer,
		logger,
	)

	nonQuotablePipeline := service.NewNonQuotablePipeline(
		keerClient,
		spClient,
		productMatcher,
		logger,
	)

	sweepWorker := worker.NewSweepWorker(
		keerClient,
		quotationPipeline,
		nonQuotablePipeline,
		cfg.sweep.StoreCode,
		cfg.sweep.IdleInterval,
		cfg.sweep.TaskPause,
		logger,
	)

	app := &application{
		config:      cfg,
		logger:      logger,
		rateLimiter: rateLimiter,
		sweepWorker: sweepWorker,
	}

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
