package conversation

import (
	"context"
	"fmt"
)

// HandleMenuOption runs the action bound to a menu option id. It never
// consults the sender's current state; starting a flow overwrites any flow
// already in progress.
func (r *Router) HandleMenuOption(ctx context.Context, to, optionID string) error {
	switch optionID {
	case OptionSchedule:
		if err := r.saveState(ctx, to, Scheduling{Step: StepName}); err != nil {
			return err
		}
		return r.sendText(ctx, to, msgAskName, "")
	case OptionConsult, OptionAskAnother:
		if err := r.saveState(ctx, to, Consulting{Step: StepQuestion}); err != nil {
			return err
		}
		return r.sendText(ctx, to, msgAskQuestion, "")
	case OptionLocation:
		if err := r.messenger.SendLocation(ctx, to, r.clinic.Location); err != nil {
			return fmt.Errorf("conversation: send location: %w", err)
		}
		return r.sendText(ctx, to, msgLocation, "")
	case OptionThanks:
		return r.sendText(ctx, to, msgThanks, "")
	case OptionEmergency:
		if err := r.messenger.SendContact(ctx, to, r.clinic.Contact); err != nil {
			return fmt.Errorf("conversation: send contact: %w", err)
		}
		return r.sendText(ctx, to, msgEmergency, "")
	default:
		r.logger.Debug("unrecognized menu option", "sender", to, "option", optionID)
		return r.sendText(ctx, to, msgUnknown, "")
	}
}
