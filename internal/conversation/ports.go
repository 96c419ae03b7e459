package conversation

import (
	"context"
	"time"

	"github.com/wolfman30/muelita-bot/internal/appointments"
)

// Event types the router reacts to. Anything else is ignored.
const (
	EventTypeText        = "text"
	EventTypeInteractive = "interactive"
)

// InboundEvent is one user message delivered by the messaging platform.
type InboundEvent struct {
	From          string
	ID            string
	Type          string
	Text          string
	ButtonReplyID string
	SenderName    string
	Timestamp     time.Time
}

// Button is a quick-reply button.
type Button struct {
	ID    string
	Title string
}

// MediaKind is the WhatsApp media message type.
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
)

// Media is a link-based media attachment. Audio messages carry no caption.
type Media struct {
	Kind    MediaKind
	URL     string
	Caption string
}

// Location is a map pin.
type Location struct {
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

// Messenger delivers outbound messages to a WhatsApp user.
type Messenger interface {
	SendText(ctx context.Context, to, body, replyToID string) error
	SendButtons(ctx context.Context, to, body string, buttons []Button) error
	SendMedia(ctx context.Context, to string, media Media) error
	SendContact(ctx context.Context, to string, contact Contact) error
	SendLocation(ctx context.Context, to string, loc Location) error
	MarkAsRead(ctx context.Context, messageID string) error
}

// AppointmentExporter records a completed appointment request.
type AppointmentExporter interface {
	Export(ctx context.Context, rec appointments.Record) error
}

// Assistant answers a single free-text question.
type Assistant interface {
	Answer(ctx context.Context, question string) (string, error)
}

// MediaSource resolves the sample document sent for the "media" keyword.
type MediaSource interface {
	SampleDocument(ctx context.Context) (Media, error)
}
