package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/muelita-bot/internal/appointments"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// ErrUnknownStep is returned when a stored flow is at a step no handler knows.
var ErrUnknownStep = errors.New("conversation: unknown flow step")

const (
	mediaKeyword         = "media"
	defaultExportTimeout = 30 * time.Second
)

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Messenger Messenger
	Sessions  SessionStore
	Exporter  AppointmentExporter
	Assistant Assistant
	Media     MediaSource
	Clinic    *ClinicProfile
	// AssistantFallback replaces failed or empty assistant answers.
	AssistantFallback string
	// ExportTimeout bounds one background export. Defaults to 30s.
	ExportTimeout time.Duration
	Logger        *logging.Logger
	Metrics       *metrics.BotMetrics
	Now           func() time.Time
}

// Router turns inbound WhatsApp events into replies, driving the per-sender
// appointment and assistant flows.
type Router struct {
	messenger Messenger
	sessions  SessionStore
	exporter  AppointmentExporter
	assistant Assistant
	media     MediaSource
	clinic    ClinicProfile
	loc       *time.Location
	fallback  string
	logger    *logging.Logger
	metrics   *metrics.BotMetrics
	now       func() time.Time

	exportTimeout time.Duration
	exports       sync.WaitGroup
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Messenger == nil {
		panic("conversation: messenger cannot be nil")
	}
	if cfg.Sessions == nil {
		panic("conversation: session store cannot be nil")
	}
	if cfg.Assistant == nil {
		panic("conversation: assistant cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	clinic := DefaultClinicProfile()
	if cfg.Clinic != nil {
		clinic = *cfg.Clinic
	}
	exporter := cfg.Exporter
	if exporter == nil {
		exporter = appointments.NewLogExporter(logger)
	}
	media := cfg.Media
	if media == nil {
		media = StaticMediaSource{Media: clinic.SampleDocument}
	}
	fallback := strings.TrimSpace(cfg.AssistantFallback)
	if fallback == "" {
		fallback = DefaultAssistantFallback
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	exportTimeout := cfg.ExportTimeout
	if exportTimeout <= 0 {
		exportTimeout = defaultExportTimeout
	}
	return &Router{
		messenger: cfg.Messenger,
		sessions:  cfg.Sessions,
		exporter:  exporter,
		assistant: cfg.Assistant,
		media:     media,
		clinic:    clinic,
		loc:       ClinicLocation(clinic.Timezone),
		fallback:  fallback,
		logger:    logger,
		metrics:   cfg.Metrics,
		now:       now,

		exportTimeout: exportTimeout,
	}
}

// WaitForExports blocks until every background appointment export has
// finished. Call it after the worker has drained.
func (r *Router) WaitForExports() {
	r.exports.Wait()
}

// HandleEvent processes one inbound event to completion and then marks it as
// read. Events that are neither text nor interactive are ignored. A failed
// send aborts handling and no read receipt is sent.
func (r *Router) HandleEvent(ctx context.Context, evt InboundEvent) error {
	var err error
	switch evt.Type {
	case EventTypeText:
		err = r.handleText(ctx, evt)
	case EventTypeInteractive:
		err = r.HandleMenuOption(ctx, evt.From, evt.ButtonReplyID)
	default:
		r.logger.Debug("ignoring unsupported event type", "type", evt.Type, "message_id", evt.ID)
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.messenger.MarkAsRead(ctx, evt.ID); err != nil {
		return fmt.Errorf("conversation: mark as read: %w", err)
	}
	return nil
}

func (r *Router) handleText(ctx context.Context, evt InboundEvent) error {
	normalized := normalizeText(evt.Text)
	if IsGreeting(normalized) {
		return r.sendWelcome(ctx, evt)
	}
	if normalized == mediaKeyword {
		return r.sendSampleDocument(ctx, evt.From)
	}

	state, err := r.sessions.Load(ctx, evt.From)
	if err != nil {
		return fmt.Errorf("conversation: load session: %w", err)
	}
	text := strings.TrimSpace(evt.Text)
	switch st := state.(type) {
	case Scheduling:
		return r.handleAppointmentFlow(ctx, evt.From, st, text)
	case Consulting:
		return r.handleAssistantFlow(ctx, evt.From, st, text)
	default:
		return r.HandleMenuOption(ctx, evt.From, normalized)
	}
}

func (r *Router) sendWelcome(ctx context.Context, evt InboundEvent) error {
	body := fmt.Sprintf(msgWelcomeTemplate, FormatFirstName(evt.SenderName, evt.From))
	if err := r.sendText(ctx, evt.From, body, evt.ID); err != nil {
		return err
	}
	return r.sendButtons(ctx, evt.From, msgMenuPrompt, welcomeMenu)
}

func (r *Router) sendSampleDocument(ctx context.Context, to string) error {
	doc, err := r.media.SampleDocument(ctx)
	if err != nil {
		r.logger.Warn("sample document unavailable, using static link", "error", err)
		doc = r.clinic.SampleDocument
	}
	if err := r.messenger.SendMedia(ctx, to, doc); err != nil {
		return fmt.Errorf("conversation: send media: %w", err)
	}
	return nil
}

func (r *Router) sendText(ctx context.Context, to, body, replyToID string) error {
	if err := r.messenger.SendText(ctx, to, body, replyToID); err != nil {
		return fmt.Errorf("conversation: send text: %w", err)
	}
	return nil
}

func (r *Router) sendButtons(ctx context.Context, to, body string, buttons []Button) error {
	if err := r.messenger.SendButtons(ctx, to, body, buttons); err != nil {
		return fmt.Errorf("conversation: send buttons: %w", err)
	}
	return nil
}

func (r *Router) saveState(ctx context.Context, senderID string, state State) error {
	if err := r.sessions.Save(ctx, senderID, state); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}
	r.metrics.ObserveFlow(state.Flow(), StepOf(state))
	return nil
}

func (r *Router) clearState(ctx context.Context, senderID string) error {
	if err := r.sessions.Delete(ctx, senderID); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}
