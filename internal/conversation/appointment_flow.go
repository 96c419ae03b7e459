package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/muelita-bot/internal/appointments"
)

func (r *Router) handleAppointmentFlow(ctx context.Context, to string, st Scheduling, text string) error {
	switch st.Step {
	case StepName:
		st.Name = text
		st.Step = StepReason
		if err := r.saveState(ctx, to, st); err != nil {
			return err
		}
		return r.sendText(ctx, to, msgAskReason, "")
	case StepReason:
		st.Reason = text
		rec := appointments.Record{
			SenderID:    to,
			Name:        st.Name,
			Reason:      st.Reason,
			RequestedAt: r.now().In(r.loc),
		}
		r.exportAsync(ctx, rec)
		if err := r.clearState(ctx, to); err != nil {
			return err
		}
		r.metrics.ObserveFlow(FlowAppointment, "completed")
		return r.sendText(ctx, to, fmt.Sprintf(msgAppointmentSummary, st.Name, st.Reason), "")
	default:
		if err := r.clearState(ctx, to); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s step %q", ErrUnknownStep, FlowAppointment, st.Step)
	}
}

// exportAsync hands rec to the exporter on its own bounded context so a slow
// sink neither delays the summary nor is cut short when the event finishes.
func (r *Router) exportAsync(ctx context.Context, rec appointments.Record) {
	exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.exportTimeout)
	r.exports.Add(1)
	go func() {
		defer r.exports.Done()
		defer cancel()
		start := time.Now()
		if err := r.exporter.Export(exportCtx, rec); err != nil {
			r.metrics.ObserveFlow(FlowAppointment, "export_failed")
			r.logger.Error("appointment export failed", "sender", rec.SenderID, "elapsed", time.Since(start), "error", err)
		}
	}()
}
