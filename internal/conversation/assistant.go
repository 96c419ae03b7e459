package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

var assistantTracer = otel.Tracer("muelita.internal.conversation.assistant")

const (
	defaultAssistantTimeout = 20 * time.Second

	assistantMaxTokens        = 250
	assistantTemperature      = 0.5
	assistantFrequencyPenalty = 0.2
	assistantPresencePenalty  = 0.1
)

// DefaultAssistantSystemPrompt keeps answers short and routes emergencies to the clinic.
const DefaultAssistantSystemPrompt = `Eres el asistente virtual de Doctor Muelita, una clínica odontológica en Arequipa, Perú.
Responde preguntas sobre salud dental de forma clara, breve y sencilla, como si hablaras por WhatsApp.
No saludes ni generes conversación adicional: responde únicamente la consulta.
Si la consulta describe una emergencia o dolor intenso, indica que debe acudir a un centro de Doctor Muelita o llamar a nuestra linea de atención.
No hagas diagnósticos definitivos ni recetes medicamentos.
Responde en el mismo idioma en que el usuario escribe.`

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("conversation: assistant returned an empty answer")

// LLMAssistant answers one question per call with no conversation history.
type LLMAssistant struct {
	client  LLMClient
	model   string
	prompt  string
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.BotMetrics
}

// AssistantOption customizes an LLMAssistant.
type AssistantOption func(*LLMAssistant)

func WithAssistantTimeout(d time.Duration) AssistantOption {
	return func(a *LLMAssistant) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithAssistantSystemPrompt(prompt string) AssistantOption {
	return func(a *LLMAssistant) {
		if strings.TrimSpace(prompt) != "" {
			a.prompt = prompt
		}
	}
}

func WithAssistantLogger(logger *logging.Logger) AssistantOption {
	return func(a *LLMAssistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithAssistantMetrics(m *metrics.BotMetrics) AssistantOption {
	return func(a *LLMAssistant) {
		a.metrics = m
	}
}

func NewLLMAssistant(client LLMClient, model string, opts ...AssistantOption) *LLMAssistant {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	a := &LLMAssistant{
		client:  client,
		model:   model,
		prompt:  DefaultAssistantSystemPrompt,
		timeout: defaultAssistantTimeout,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *LLMAssistant) Answer(ctx context.Context, question string) (string, error) {
	ctx, span := assistantTracer.Start(ctx, "conversation.assistant.answer")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.Complete(callCtx, LLMRequest{
		Model:            a.model,
		System:           []string{a.prompt},
		Messages:         []ChatMessage{{Role: ChatRoleUser, Content: question}},
		MaxTokens:        assistantMaxTokens,
		Temperature:      assistantTemperature,
		FrequencyPenalty: assistantFrequencyPenalty,
		PresencePenalty:  assistantPresencePenalty,
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		a.metrics.ObserveAssistant("error", elapsed)
		return "", fmt.Errorf("conversation: assistant completion: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		span.RecordError(ErrEmptyAnswer)
		a.metrics.ObserveAssistant("empty", elapsed)
		return "", ErrEmptyAnswer
	}
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int("muelita.llm.output_tokens", int(resp.Usage.OutputTokens)),
			attribute.String("muelita.llm.stop_reason", resp.StopReason),
		)
	}
	a.metrics.ObserveAssistant("ok", elapsed)
	a.logger.Debug("assistant answered", "output_tokens", resp.Usage.OutputTokens, "stop_reason", resp.StopReason)
	return text, nil
}
