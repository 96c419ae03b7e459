package whatsapp

import (
	"context"
	"net/http"

	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/internal/events"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

const providerName = "whatsapp"

// EventSubmitter queues inbound events for asynchronous processing.
type EventSubmitter interface {
	Submit(ctx context.Context, evt conversation.InboundEvent) error
}

// Adapter is the WhatsApp channel adapter. It acknowledges webhooks, drops
// redelivered messages and hands new ones to the conversation worker.
type Adapter struct {
	client    *Client
	webhook   *WebhookHandler
	processed events.ProcessedStore
	submitter EventSubmitter
	logger    *logging.Logger
	metrics   *metrics.BotMetrics
}

// AdapterConfig wires an Adapter.
type AdapterConfig struct {
	Client      *Client
	VerifyToken string
	AppSecret   string
	Processed   events.ProcessedStore
	Submitter   EventSubmitter
	Logger      *logging.Logger
	Metrics     *metrics.BotMetrics
}

func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Client == nil {
		panic("whatsapp: client cannot be nil")
	}
	if cfg.Submitter == nil {
		panic("whatsapp: event submitter cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	a := &Adapter{
		client:    cfg.Client,
		processed: cfg.Processed,
		submitter: cfg.Submitter,
		logger:    logger,
		metrics:   cfg.Metrics,
	}
	a.webhook = NewWebhookHandler(cfg.VerifyToken, cfg.AppSecret, a.dispatch, logger)
	return a
}

// Client returns the outbound Cloud API client.
func (a *Adapter) Client() *Client {
	return a.client
}

// HandleVerification handles GET /webhooks/whatsapp (Meta challenge).
func (a *Adapter) HandleVerification(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleVerification(w, r)
}

// HandleWebhook handles POST /webhooks/whatsapp (inbound messages).
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleInbound(w, r)
}

func (a *Adapter) dispatch(ctx context.Context, evt conversation.InboundEvent) {
	if a.processed != nil && evt.ID != "" {
		first, err := a.processed.MarkProcessed(ctx, providerName, evt.ID)
		if err != nil {
			// Store errors fail open.
			a.logger.Warn("whatsapp: idempotency check failed", "message_id", evt.ID, "error", err)
		} else if !first {
			a.metrics.ObserveInbound(evt.Type, "duplicate")
			a.logger.Debug("whatsapp: duplicate message skipped", "message_id", evt.ID)
			return
		}
	}

	if err := a.submitter.Submit(ctx, evt); err != nil {
		a.metrics.ObserveInbound(evt.Type, "dropped")
		a.logger.Error("whatsapp: failed to queue inbound message",
			"sender", evt.From,
			"message_id", evt.ID,
			"error", err,
		)
		return
	}
	a.metrics.ObserveInbound(evt.Type, "accepted")
	a.logger.Info("whatsapp: inbound message queued",
		"sender", evt.From,
		"message_id", evt.ID,
		"type", evt.Type,
	)
}
