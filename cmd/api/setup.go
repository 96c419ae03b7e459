package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/muelita-bot/cmd/mainconfig"
	"github.com/wolfman30/muelita-bot/internal/api/router"
	"github.com/wolfman30/muelita-bot/internal/app/bootstrap"
	"github.com/wolfman30/muelita-bot/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/muelita-bot/internal/config"
	"github.com/wolfman30/muelita-bot/internal/http/handlers"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/internal/queue"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// app holds the wired runtime so main can start and stop it.
type app struct {
	handler  http.Handler
	pipeline *bootstrap.Pipeline
	// localWorker is false when events are handed to conversation workers over SQS.
	localWorker bool
	closers     []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setupMetrics() (http.Handler, *prometheus.Registry, *metrics.BotMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), reg, metrics.NewBotMetrics(reg)
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	metricsHandler, _, botMetrics := setupMetrics()
	if !cfg.MetricsEnabled {
		metricsHandler = nil
	}

	var awsCfg *aws.Config
	if cfg.UsesAWS() {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	checks := map[string]handlers.Checker{}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		checks["postgres"] = pool.Ping
	}

	a.pipeline, err = bootstrap.BuildPipeline(ctx, cfg, bootstrap.PipelineDeps{
		AWS:     awsCfg,
		Redis:   redisClient,
		Pool:    pool,
		Logger:  logger,
		Metrics: botMetrics,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, a.pipeline.Close)

	var submitter whatsapp.EventSubmitter = a.pipeline.Worker
	a.localWorker = true
	if cfg.ConversationQueueURL != "" {
		submitter = queue.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.ConversationQueueURL)
		a.localWorker = false
		logger.Info("inbound events handed off to sqs", "queue_url", cfg.ConversationQueueURL)
	}

	adapter := whatsapp.NewAdapter(whatsapp.AdapterConfig{
		Client:      a.pipeline.Client,
		VerifyToken: cfg.WhatsAppVerifyToken,
		AppSecret:   cfg.WhatsAppAppSecret,
		Processed:   bootstrap.BuildProcessedStore(cfg, redisClient, pool, logger),
		Submitter:   submitter,
		Logger:      logger,
		Metrics:     botMetrics,
	})

	var adminSessions *handlers.AdminSessionsHandler
	if cfg.AdminJWTSecret != "" {
		adminSessions = handlers.NewAdminSessionsHandler(a.pipeline.Sessions, logger)
	}

	a.handler = router.New(&router.Config{
		Logger:          logger,
		WhatsApp:        adapter,
		Health:          handlers.NewHealthHandler(checks, logger),
		AdminSessions:   adminSessions,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  metricsHandler,
	})
	return a, nil
}
