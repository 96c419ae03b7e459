package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/wolfman30/muelita-bot/internal/appointments"
)

type sentMessage struct {
	Kind      string
	To        string
	Body      string
	ReplyToID string
	Buttons   []Button
	Media     Media
	Contact   Contact
	Location  Location
	MessageID string
}

type recordingMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn string
}

var errSendFailed = errors.New("graph api unavailable")

func (m *recordingMessenger) record(msg sentMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn == msg.Kind {
		return errSendFailed
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMessenger) SendText(_ context.Context, to, body, replyToID string) error {
	return m.record(sentMessage{Kind: "text", To: to, Body: body, ReplyToID: replyToID})
}

func (m *recordingMessenger) SendButtons(_ context.Context, to, body string, buttons []Button) error {
	return m.record(sentMessage{Kind: "buttons", To: to, Body: body, Buttons: buttons})
}

func (m *recordingMessenger) SendMedia(_ context.Context, to string, media Media) error {
	return m.record(sentMessage{Kind: "media", To: to, Media: media})
}

func (m *recordingMessenger) SendContact(_ context.Context, to string, contact Contact) error {
	return m.record(sentMessage{Kind: "contact", To: to, Contact: contact})
}

func (m *recordingMessenger) SendLocation(_ context.Context, to string, loc Location) error {
	return m.record(sentMessage{Kind: "location", To: to, Location: loc})
}

func (m *recordingMessenger) MarkAsRead(_ context.Context, messageID string) error {
	return m.record(sentMessage{Kind: "read", MessageID: messageID})
}

func (m *recordingMessenger) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Kind)
	}
	return out
}

func (m *recordingMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *recordingMessenger) reset() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}

type recordingExporter struct {
	mu      sync.Mutex
	records []appointments.Record
	err     error
}

func (e *recordingExporter) Export(_ context.Context, rec appointments.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, rec)
	return e.err
}

func (e *recordingExporter) exported() []appointments.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]appointments.Record(nil), e.records...)
}

// blockingExporter holds every export until its context ends.
type blockingExporter struct {
	mu   sync.Mutex
	errs []error
}

func (e *blockingExporter) Export(ctx context.Context, _ appointments.Record) error {
	<-ctx.Done()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, ctx.Err())
	return ctx.Err()
}

func (e *blockingExporter) results() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.errs...)
}

// contextCheckingMessenger refuses to send on a finished context, like a real
// HTTP client would.
type contextCheckingMessenger struct {
	recordingMessenger
}

func (m *contextCheckingMessenger) SendText(ctx context.Context, to, body, replyToID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.recordingMessenger.SendText(ctx, to, body, replyToID)
}

func (m *contextCheckingMessenger) MarkAsRead(ctx context.Context, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.recordingMessenger.MarkAsRead(ctx, messageID)
}

type stubAssistant struct {
	questions []string
	answer    string
	err       error
}

func (a *stubAssistant) Answer(_ context.Context, question string) (string, error) {
	a.questions = append(a.questions, question)
	return a.answer, a.err
}

type failingMediaSource struct{}

func (failingMediaSource) SampleDocument(context.Context) (Media, error) {
	return Media{}, errors.New("bucket missing")
}
