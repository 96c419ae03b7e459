package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// Sink is a named exporter so failures can be attributed in logs and metrics.
type Sink struct {
	Name     string
	Exporter Exporter
}

// MultiExporter fans an appointment request out to every configured sink.
// Every sink is attempted; failures are joined into the returned error.
type MultiExporter struct {
	sinks   []Sink
	logger  *logging.Logger
	metrics *metrics.BotMetrics
}

func NewMultiExporter(logger *logging.Logger, m *metrics.BotMetrics, sinks ...Sink) *MultiExporter {
	if logger == nil {
		logger = logging.Default()
	}
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Exporter != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiExporter{sinks: filtered, logger: logger, metrics: m}
}

// Len reports how many sinks are configured.
func (m *MultiExporter) Len() int {
	return len(m.sinks)
}

func (m *MultiExporter) Export(ctx context.Context, rec Record) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Exporter.Export(ctx, rec); err != nil {
			m.metrics.ObserveExport(sink.Name, "failed")
			m.logger.Error("appointment export failed", "sink", sink.Name, "sender", rec.SenderID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
			continue
		}
		m.metrics.ObserveExport(sink.Name, "ok")
	}
	return errors.Join(errs...)
}

// LogExporter only logs the row. Used when no external sink is configured.
type LogExporter struct {
	logger *logging.Logger
}

func NewLogExporter(logger *logging.Logger) *LogExporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogExporter{logger: logger}
}

func (e *LogExporter) Export(_ context.Context, rec Record) error {
	e.logger.Info("appointment request recorded",
		"sender", rec.SenderID,
		"name", rec.Name,
		"reason", rec.Reason,
		"requested_at", rec.Timestamp(),
	)
	return nil
}
