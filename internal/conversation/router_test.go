package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/muelita-bot/internal/appointments"
)

const sender = "51999888777"

var fixedNow = time.Date(2024, 5, 3, 19, 7, 9, 123_000_000, time.UTC)

type routerHarness struct {
	router    *Router
	messenger *recordingMessenger
	sessions  *MemorySessionStore
	exporter  *recordingExporter
	assistant *stubAssistant
}

func newRouterHarness(t *testing.T) *routerHarness {
	t.Helper()
	h := &routerHarness{
		messenger: &recordingMessenger{},
		sessions:  NewMemorySessionStore(),
		exporter:  &recordingExporter{},
		assistant: &stubAssistant{answer: "Enjuágate con agua tibia y agenda una cita."},
	}
	h.router = NewRouter(RouterConfig{
		Messenger: h.messenger,
		Sessions:  h.sessions,
		Exporter:  h.exporter,
		Assistant: h.assistant,
		Now:       func() time.Time { return fixedNow },
	})
	return h
}

func (h *routerHarness) text(t *testing.T, id, body string) {
	t.Helper()
	require.NoError(t, h.router.HandleEvent(context.Background(), InboundEvent{
		From: sender, ID: id, Type: EventTypeText, Text: body, SenderName: "Ana Torres",
	}))
}

func (h *routerHarness) button(t *testing.T, id, option string) {
	t.Helper()
	require.NoError(t, h.router.HandleEvent(context.Background(), InboundEvent{
		From: sender, ID: id, Type: EventTypeInteractive, ButtonReplyID: option,
	}))
}

func (h *routerHarness) state(t *testing.T) State {
	t.Helper()
	st, err := h.sessions.Load(context.Background(), sender)
	require.NoError(t, err)
	return st
}

func TestGreetingSendsWelcomeMenuThenReadReceipt(t *testing.T) {
	h := newRouterHarness(t)

	h.text(t, "wamid.1", "hi")

	sent := h.messenger.messages()
	require.Equal(t, []string{"text", "buttons", "read"}, h.messenger.kinds())
	assert.Equal(t, "Hola Ana, Bienvenido a nuestro Servicio Odontológico Muelita online.¿En que puedo ayudarte hoy?", sent[0].Body)
	assert.Equal(t, "wamid.1", sent[0].ReplyToID)
	assert.Equal(t, "Elige una Opción", sent[1].Body)
	assert.Equal(t, []Button{
		{ID: "option_1", Title: "Agendar"},
		{ID: "option_2", Title: "Consultar"},
		{ID: "option_3", Title: "Ubicación"},
	}, sent[1].Buttons)
	assert.Equal(t, "wamid.1", sent[2].MessageID)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestGreetingMatchesExactlyIgnoringCase(t *testing.T) {
	h := newRouterHarness(t)

	h.text(t, "wamid.1", "  HOLA  ")
	assert.Equal(t, []string{"text", "buttons", "read"}, h.messenger.kinds())

	h.messenger.reset()
	h.text(t, "wamid.2", "hola que tal")
	sent := h.messenger.messages()
	require.Equal(t, []string{"text", "read"}, h.messenger.kinds())
	assert.Equal(t, msgUnknown, sent[0].Body)
}

func TestWelcomeFallsBackToSenderID(t *testing.T) {
	h := newRouterHarness(t)

	require.NoError(t, h.router.HandleEvent(context.Background(), InboundEvent{
		From: sender, ID: "wamid.1", Type: EventTypeText, Text: "buenas tardes",
	}))

	sent := h.messenger.messages()
	assert.Equal(t, fmt.Sprintf(msgWelcomeTemplate, sender), sent[0].Body)
}

func TestMediaKeywordSendsSampleDocument(t *testing.T) {
	h := newRouterHarness(t)

	h.text(t, "wamid.1", " Media ")

	sent := h.messenger.messages()
	require.Equal(t, []string{"media", "read"}, h.messenger.kinds())
	assert.Equal(t, Media{
		Kind:    MediaDocument,
		URL:     "https://s3.us-east-1.amazonaws.com/muelita.dev/muelita-file.pdf",
		Caption: "¡Esto es un PDF!",
	}, sent[0].Media)
}

func TestMediaSourceFailureUsesStaticDocument(t *testing.T) {
	messenger := &recordingMessenger{}
	router := NewRouter(RouterConfig{
		Messenger: messenger,
		Sessions:  NewMemorySessionStore(),
		Assistant: &stubAssistant{},
		Media:     failingMediaSource{},
	})

	require.NoError(t, router.HandleEvent(context.Background(), InboundEvent{From: sender, ID: "w", Type: EventTypeText, Text: "media"}))
	sent := messenger.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, DefaultClinicProfile().SampleDocument, sent[0].Media)
}

func TestAppointmentFlowExportsRecordAndClearsState(t *testing.T) {
	h := newRouterHarness(t)

	h.button(t, "wamid.1", OptionSchedule)
	assert.Equal(t, Scheduling{Step: StepName}, h.state(t))
	_, consulting := h.state(t).(Consulting)
	assert.False(t, consulting)

	h.text(t, "wamid.2", "Ana Torres")
	assert.Equal(t, Scheduling{Step: StepReason, Name: "Ana Torres"}, h.state(t))

	h.text(t, "wamid.3", "dolor de muela")
	assert.Equal(t, Idle{}, h.state(t))

	h.router.WaitForExports()
	records := h.exporter.exported()
	require.Len(t, records, 1)
	row := records[0].Row()
	assert.Equal(t, []any{sender, "Ana Torres", "dolor de muela", "2024-05-03T14:07:09.123-05:00"}, row)

	sent := h.messenger.messages()
	require.Equal(t, []string{"text", "read", "text", "read", "text", "read"}, h.messenger.kinds())
	assert.Equal(t, msgAskName, sent[0].Body)
	assert.Equal(t, msgAskReason, sent[2].Body)
	assert.Equal(t, fmt.Sprintf(msgAppointmentSummary, "Ana Torres", "dolor de muela"), sent[4].Body)
	assert.Contains(t, sent[4].Body, "Nos pondremos en contacto contigo pronto")

	// With no active flow the next message falls through to the menu.
	h.messenger.reset()
	h.text(t, "wamid.4", "gracias")
	assert.Equal(t, msgUnknown, h.messenger.messages()[0].Body)
}

func TestAppointmentExportFailureStillConfirms(t *testing.T) {
	h := newRouterHarness(t)
	h.exporter.err = errors.New("sheet quota exceeded")

	h.button(t, "wamid.1", OptionSchedule)
	h.text(t, "wamid.2", "Ana Torres")
	h.text(t, "wamid.3", "limpieza")

	assert.Equal(t, Idle{}, h.state(t))
	sent := h.messenger.messages()
	assert.Equal(t, fmt.Sprintf(msgAppointmentSummary, "Ana Torres", "limpieza"), sent[len(sent)-2].Body)
	h.router.WaitForExports()
	assert.Len(t, h.exporter.exported(), 1)
}

func TestSlowExportDoesNotBlockSummary(t *testing.T) {
	messenger := &contextCheckingMessenger{}
	sessions := NewMemorySessionStore()
	exporter := &blockingExporter{}
	router := NewRouter(RouterConfig{
		Messenger:     messenger,
		Sessions:      sessions,
		Exporter:      exporter,
		Assistant:     &stubAssistant{},
		ExportTimeout: 100 * time.Millisecond,
		Now:           func() time.Time { return fixedNow },
	})
	require.NoError(t, sessions.Save(context.Background(), sender, Scheduling{Step: StepReason, Name: "Ana"}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	err := router.HandleEvent(ctx, InboundEvent{From: sender, ID: "wamid.9", Type: EventTypeText, Text: "limpieza"})
	require.NoError(t, err)
	// The event is done; its context ending must not cut the export short.
	cancel()

	assert.Equal(t, []string{"text", "read"}, messenger.kinds())
	assert.Equal(t, fmt.Sprintf(msgAppointmentSummary, "Ana", "limpieza"), messenger.messages()[0].Body)

	router.WaitForExports()
	assert.Equal(t, []error{context.DeadlineExceeded}, exporter.results())
}

func TestAssistantFlowAnswersOnceThenFollowUpMenu(t *testing.T) {
	h := newRouterHarness(t)

	h.button(t, "wamid.1", OptionConsult)
	assert.Equal(t, Consulting{Step: StepQuestion}, h.state(t))

	h.messenger.reset()
	h.text(t, "wamid.2", "¿Qué hago si me sangran las encías?")

	assert.Equal(t, []string{"¿Qué hago si me sangran las encías?"}, h.assistant.questions)
	assert.Equal(t, Idle{}, h.state(t))
	sent := h.messenger.messages()
	require.Equal(t, []string{"text", "buttons", "read"}, h.messenger.kinds())
	assert.Equal(t, "Enjuágate con agua tibia y agenda una cita.", sent[0].Body)
	assert.Equal(t, "¿La respuesta fue de tu ayuda?", sent[1].Body)
	assert.Equal(t, []Button{
		{ID: "option_4", Title: "Si, Gracias"},
		{ID: "option_5", Title: "Hacer otra pregunta"},
		{ID: "option_6", Title: "Emergencia"},
	}, sent[1].Buttons)
}

func TestAssistantFailureSendsFallbackAndClearsState(t *testing.T) {
	for name, assistant := range map[string]*stubAssistant{
		"error": {err: errors.New("timeout")},
		"empty": {answer: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			h := newRouterHarness(t)
			h.assistant.answer = assistant.answer
			h.assistant.err = assistant.err

			h.button(t, "wamid.1", OptionConsult)
			h.messenger.reset()
			h.text(t, "wamid.2", "¿Duele una extracción?")

			assert.Equal(t, Idle{}, h.state(t))
			sent := h.messenger.messages()
			require.Equal(t, []string{"text", "buttons", "read"}, h.messenger.kinds())
			assert.Equal(t, DefaultAssistantFallback, sent[0].Body)
		})
	}
}

func TestAssistantFallbackIsConfigurable(t *testing.T) {
	messenger := &recordingMessenger{}
	sessions := NewMemorySessionStore()
	router := NewRouter(RouterConfig{
		Messenger:         messenger,
		Sessions:          sessions,
		Assistant:         &stubAssistant{err: errors.New("down")},
		AssistantFallback: "Intenta más tarde.",
	})
	require.NoError(t, sessions.Save(context.Background(), sender, Consulting{Step: StepQuestion}))

	require.NoError(t, router.HandleEvent(context.Background(), InboundEvent{From: sender, ID: "w", Type: EventTypeText, Text: "hola doctor"}))
	assert.Equal(t, "Intenta más tarde.", messenger.messages()[0].Body)
}

func TestMenuOptions(t *testing.T) {
	clinic := DefaultClinicProfile()
	tests := []struct {
		option    string
		kinds     []string
		lastText  string
		wantState State
	}{
		{OptionSchedule, []string{"text", "read"}, msgAskName, Scheduling{Step: StepName}},
		{OptionConsult, []string{"text", "read"}, msgAskQuestion, Consulting{Step: StepQuestion}},
		{OptionLocation, []string{"location", "text", "read"}, msgLocation, Idle{}},
		{OptionThanks, []string{"text", "read"}, msgThanks, Idle{}},
		{OptionAskAnother, []string{"text", "read"}, msgAskQuestion, Consulting{Step: StepQuestion}},
		{OptionEmergency, []string{"contact", "text", "read"}, msgEmergency, Idle{}},
		{"option_99", []string{"text", "read"}, msgUnknown, Idle{}},
		{"", []string{"text", "read"}, msgUnknown, Idle{}},
	}

	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			h := newRouterHarness(t)
			h.button(t, "wamid.1", tt.option)

			require.Equal(t, tt.kinds, h.messenger.kinds())
			sent := h.messenger.messages()
			assert.Equal(t, tt.lastText, sent[len(sent)-2].Body)
			assert.Equal(t, tt.wantState, h.state(t))

			switch tt.option {
			case OptionLocation:
				assert.Equal(t, clinic.Location, sent[0].Location)
			case OptionEmergency:
				assert.Equal(t, clinic.Contact, sent[0].Contact)
			}
		})
	}
}

func TestMenuDispatchIsDeterministic(t *testing.T) {
	h := newRouterHarness(t)

	require.NoError(t, h.router.HandleMenuOption(context.Background(), sender, OptionLocation))
	first := h.messenger.messages()
	h.messenger.reset()
	require.NoError(t, h.router.HandleMenuOption(context.Background(), sender, OptionLocation))

	assert.Equal(t, first, h.messenger.messages())
}

func TestNewMenuOptionOverwritesActiveFlow(t *testing.T) {
	h := newRouterHarness(t)

	h.button(t, "wamid.1", OptionConsult)
	h.button(t, "wamid.2", OptionSchedule)

	assert.Equal(t, Scheduling{Step: StepName}, h.state(t))
	assert.Equal(t, 1, h.sessions.Len())
}

func TestUnsupportedEventTypeIsIgnored(t *testing.T) {
	h := newRouterHarness(t)

	require.NoError(t, h.router.HandleEvent(context.Background(), InboundEvent{From: sender, ID: "wamid.1", Type: "image"}))
	assert.Empty(t, h.messenger.kinds())
}

func TestSendFailureAbortsWithoutReadReceipt(t *testing.T) {
	h := newRouterHarness(t)
	h.messenger.failOn = "buttons"

	err := h.router.HandleEvent(context.Background(), InboundEvent{From: sender, ID: "wamid.1", Type: EventTypeText, Text: "hello"})

	require.ErrorIs(t, err, errSendFailed)
	assert.Equal(t, []string{"text"}, h.messenger.kinds())
}

func TestUnknownStepFailsLoudly(t *testing.T) {
	tests := map[string]State{
		"appointment": Scheduling{Step: "pet_name"},
		"assistant":   Consulting{Step: "follow_up"},
	}
	for name, st := range tests {
		t.Run(name, func(t *testing.T) {
			h := newRouterHarness(t)
			require.NoError(t, h.sessions.Save(context.Background(), sender, st))

			err := h.router.HandleEvent(context.Background(), InboundEvent{From: sender, ID: "wamid.1", Type: EventTypeText, Text: "algo"})

			require.ErrorIs(t, err, ErrUnknownStep)
			assert.Equal(t, Idle{}, h.state(t))
			assert.Empty(t, h.messenger.kinds())
		})
	}
}

func TestGreetingDuringFlowKeepsState(t *testing.T) {
	h := newRouterHarness(t)

	h.button(t, "wamid.1", OptionSchedule)
	h.text(t, "wamid.2", "hola")

	assert.Equal(t, Scheduling{Step: StepName}, h.state(t))
}

func TestExportUsesClinicTimezone(t *testing.T) {
	exporter := &recordingExporter{}
	sessions := NewMemorySessionStore()
	clinic := DefaultClinicProfile()
	clinic.Timezone = "UTC"
	router := NewRouter(RouterConfig{
		Messenger: &recordingMessenger{},
		Sessions:  sessions,
		Exporter:  exporter,
		Assistant: &stubAssistant{},
		Clinic:    &clinic,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, sessions.Save(context.Background(), sender, Scheduling{Step: StepReason, Name: "Luis"}))

	require.NoError(t, router.HandleEvent(context.Background(), InboundEvent{From: sender, ID: "w", Type: EventTypeText, Text: "control"}))

	router.WaitForExports()
	require.Len(t, exporter.exported(), 1)
	assert.Equal(t, appointments.Record{
		SenderID:    sender,
		Name:        "Luis",
		Reason:      "control",
		RequestedAt: fixedNow.In(time.UTC),
	}.Timestamp(), exporter.exported()[0].Timestamp())
}

func TestNewRouterPanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewRouter(RouterConfig{}) })
	assert.Panics(t, func() { NewRouter(RouterConfig{Messenger: &recordingMessenger{}}) })
	assert.Panics(t, func() {
		NewRouter(RouterConfig{Messenger: &recordingMessenger{}, Sessions: NewMemorySessionStore()})
	})
}
