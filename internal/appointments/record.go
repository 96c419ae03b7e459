package appointments

import (
	"context"
	"strings"
	"time"
)

// TimestampLayout is ISO-8601 with millisecond precision and the clinic offset.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is a completed appointment request collected by the scheduling flow.
type Record struct {
	SenderID    string
	Name        string
	Reason      string
	RequestedAt time.Time
}

// Row returns the record as ordered scalars: sender id, name, reason, timestamp.
func (r Record) Row() []any {
	return []any{r.SenderID, r.Name, r.Reason, r.Timestamp()}
}

// Timestamp formats RequestedAt in its own location.
func (r Record) Timestamp() string {
	return r.RequestedAt.Format(TimestampLayout)
}

// Summary is a human readable one-line description used in logs and emails.
func (r Record) Summary() string {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString(" (")
	b.WriteString(r.SenderID)
	b.WriteString("): ")
	b.WriteString(r.Reason)
	return b.String()
}

// Exporter appends a completed appointment request to an external sink.
type Exporter interface {
	Export(ctx context.Context, rec Record) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, rec Record) error

func (f ExporterFunc) Export(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
