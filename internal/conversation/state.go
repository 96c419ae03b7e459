package conversation

// Flow names used in logs, metrics and the admin session listing.
const (
	FlowAppointment = "appointment"
	FlowAssistant   = "assistant"
)

// AppointmentStep is the step of the scheduling flow awaiting input.
type AppointmentStep string

const (
	StepName   AppointmentStep = "name"
	StepReason AppointmentStep = "reason"
)

// AssistantStep is the step of the consulting flow awaiting input.
type AssistantStep string

const StepQuestion AssistantStep = "question"

// State is the per-sender conversation state. Exactly one of Idle,
// Scheduling or Consulting; a sender can never be in two flows at once.
type State interface {
	isState()
	// Flow returns the flow name, or "" when idle.
	Flow() string
}

// Idle means the sender has no flow in progress.
type Idle struct{}

// Scheduling collects the name and reason for an appointment request.
type Scheduling struct {
	Step   AppointmentStep
	Name   string
	Reason string
}

// Consulting waits for a free-text question for the assistant.
type Consulting struct {
	Step AssistantStep
}

func (Idle) isState()       {}
func (Scheduling) isState() {}
func (Consulting) isState() {}

func (Idle) Flow() string       { return "" }
func (Scheduling) Flow() string { return FlowAppointment }
func (Consulting) Flow() string { return FlowAssistant }

// StepOf returns the awaiting step of s as a string, "" when idle.
func StepOf(s State) string {
	switch st := s.(type) {
	case Scheduling:
		return string(st.Step)
	case Consulting:
		return string(st.Step)
	default:
		return ""
	}
}

func isIdle(s State) bool {
	if s == nil {
		return true
	}
	_, ok := s.(Idle)
	return ok
}
