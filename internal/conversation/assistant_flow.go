package conversation

import (
	"context"
	"fmt"
	"strings"
)

// handleAssistantFlow answers exactly one question, then returns the sender
// to the menu.
func (r *Router) handleAssistantFlow(ctx context.Context, to string, st Consulting, text string) error {
	if st.Step != StepQuestion {
		if err := r.clearState(ctx, to); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s step %q", ErrUnknownStep, FlowAssistant, st.Step)
	}

	answer := r.answer(ctx, to, text)
	if err := r.clearState(ctx, to); err != nil {
		return err
	}
	r.metrics.ObserveFlow(FlowAssistant, "completed")
	if err := r.sendText(ctx, to, answer, ""); err != nil {
		return err
	}
	return r.sendButtons(ctx, to, msgFollowUpPrompt, followUpMenu)
}

func (r *Router) answer(ctx context.Context, to, question string) string {
	answer, err := r.assistant.Answer(ctx, question)
	if err != nil {
		r.logger.Error("assistant answer failed", "sender", to, "error", err)
		return r.fallback
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		r.logger.Warn("assistant returned empty answer", "sender", to)
		return r.fallback
	}
	return answer
}
