package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/muelita-bot/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/muelita-bot/internal/config"
	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/internal/http/handlers"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

const sessionStoreRedis = "redis"

// PipelineDeps are the shared clients a conversation pipeline is built from.
type PipelineDeps struct {
	AWS     *aws.Config
	Redis   *redis.Client
	Pool    *pgxpool.Pool
	Logger  *logging.Logger
	Metrics *metrics.BotMetrics
}

// Pipeline is the wired conversation runtime: Graph client, router, worker lanes
// and the session backend behind them.
type Pipeline struct {
	Client   *whatsapp.Client
	Router   *conversation.Router
	Worker   *conversation.Worker
	Sessions handlers.AdminSessionStore
	// MemorySessions is set when sessions live in-process and need sweeping.
	MemorySessions *conversation.MemorySessionStore

	closers   []func()
	cancelRun context.CancelFunc
}

// Close releases clients opened while building the pipeline.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// Start launches the worker lanes. Events run on a context derived from ctx
// that ignores its cancellation, so a shutdown signal does not abort events
// still being drained; Shutdown ends it.
func (p *Pipeline) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancelRun = cancel
	p.Worker.Start(runCtx)
}

// Shutdown stops accepting events, lets queued events and background exports
// finish, and gives up once ctx is done by cancelling whatever is still running.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.Worker.Stop()
		if p.Router != nil {
			p.Router.WaitForExports()
		}
		close(done)
	}()

	select {
	case <-done:
		if p.cancelRun != nil {
			p.cancelRun()
		}
		return nil
	case <-ctx.Done():
		if p.cancelRun != nil {
			p.cancelRun()
		}
		return fmt.Errorf("bootstrap: pipeline drain: %w", ctx.Err())
	}
}

// BuildPipeline wires the assistant, exporters, media source and Graph client
// into a conversation router and its worker. The worker is not started.
func BuildPipeline(ctx context.Context, cfg *appconfig.Config, deps PipelineDeps) (*Pipeline, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	p := &Pipeline{}

	llmClient, model, err := BuildLLMClient(ctx, cfg, deps.AWS, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		p.closers = append(p.closers, func() { _ = closer.Close() })
	}
	assistant := BuildAssistant(cfg, llmClient, model, logger, deps.Metrics)

	exporter, err := BuildExporter(ctx, cfg, ExporterDeps{
		AWS:     deps.AWS,
		Pool:    deps.Pool,
		Email:   BuildEmailSender(cfg, deps.AWS, logger),
		Logger:  logger,
		Metrics: deps.Metrics,
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	clinic := conversation.DefaultClinicProfile()
	if cfg.ClinicTimezone != "" {
		clinic.Timezone = cfg.ClinicTimezone
	}
	mediaSource, err := BuildMediaSource(cfg, clinic, deps.AWS, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Client = whatsapp.NewClient(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID,
		whatsapp.WithGraphBaseURL(cfg.WhatsAppGraphBaseURL),
		whatsapp.WithAPIVersion(cfg.WhatsAppAPIVersion),
		whatsapp.WithClientLogger(logger),
		whatsapp.WithClientMetrics(deps.Metrics),
	)

	p.Sessions = BuildSessionStore(cfg, deps.Redis, logger)
	if mem, ok := p.Sessions.(*conversation.MemorySessionStore); ok {
		p.MemorySessions = mem
	}

	p.Router = conversation.NewRouter(conversation.RouterConfig{
		Messenger:         p.Client,
		Sessions:          p.Sessions,
		Exporter:          exporter,
		Assistant:         assistant,
		Media:             mediaSource,
		Clinic:            &clinic,
		AssistantFallback: cfg.AssistantFallbackReply,
		ExportTimeout:     cfg.ExportTimeout,
		Logger:            logger,
		Metrics:           deps.Metrics,
	})

	p.Worker = conversation.NewWorker(p.Router,
		conversation.WithWorkerCount(cfg.WorkerCount),
		conversation.WithLaneBuffer(cfg.WorkerLaneBuffer),
		conversation.WithEventTimeout(cfg.EventTimeout),
		conversation.WithWorkerLogger(logger),
		conversation.WithWorkerMetrics(deps.Metrics),
	)
	return p, nil
}

// BuildSessionStore keeps sessions in memory unless SESSION_STORE=redis and a
// client is available, in which case every worker instance shares them.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) handlers.AdminSessionStore {
	if cfg.SessionStore == sessionStoreRedis {
		if redisClient != nil {
			logger.Info("conversation sessions stored in redis", "ttl", cfg.SessionTTL)
			return conversation.NewRedisSessionStore(redisClient, cfg.SessionTTL)
		}
		logger.Warn("SESSION_STORE=redis but redis is unavailable; using memory")
	}
	logger.Info("conversation sessions stored in memory", "ttl", cfg.SessionTTL)
	return conversation.NewMemorySessionStore(conversation.WithSessionTTL(cfg.SessionTTL))
}

// RunSessionSweeper drops idle sessions past their TTL until ctx is done.
func RunSessionSweeper(ctx context.Context, sessions *conversation.MemorySessionStore, interval time.Duration, logger *logging.Logger) {
	if sessions == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := sessions.Sweep(now); removed > 0 {
				logger.Info("expired sessions swept", "removed", removed)
			}
		}
	}
}
