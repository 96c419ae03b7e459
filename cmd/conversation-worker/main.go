package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/muelita-bot/cmd/mainconfig"
	"github.com/wolfman30/muelita-bot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/muelita-bot/internal/config"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/internal/queue"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.ConversationQueueURL == "" {
		logger.Error("CONVERSATION_QUEUE_URL is required for the conversation worker")
		os.Exit(1)
	}

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(context.Background(), cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	pool, err := bootstrap.BuildPostgresPool(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	pipeline, err := bootstrap.BuildPipeline(context.Background(), cfg, bootstrap.PipelineDeps{
		AWS:     &awsConfig,
		Redis:   redisClient,
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics.NewBotMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		logger.Error("failed to wire conversation pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()
	if pipeline.MemorySessions != nil {
		logger.Warn("sessions are local to this process; run a single worker or set SESSION_STORE=redis")
	}

	sqsQueue := queue.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.ConversationQueueURL)
	consumer := queue.NewConsumer(sqsQueue, pipeline.Worker, queue.ConsumerConfig{
		MaxMessages: cfg.QueueMaxMessages,
		WaitSeconds: cfg.QueueWaitSeconds,
	}, logger)

	// Events already on a lane keep running while polling stops.
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()

	pipeline.Start(context.Background())
	go bootstrap.RunSessionSweeper(sweepCtx, pipeline.MemorySessions, cfg.SessionSweepInterval, logger)

	polling := make(chan struct{})
	go func() {
		consumer.Run(pollCtx)
		close(polling)
	}()
	logger.Info("conversation worker started", "queue_url", cfg.ConversationQueueURL, "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancelPoll()
	<-polling

	doneCtx, doneCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer doneCancel()

	if err := pipeline.Shutdown(doneCtx); err != nil {
		logger.Error("conversation worker shutdown timed out", "error", err)
		return
	}
	logger.Info("conversation worker stopped")
}
