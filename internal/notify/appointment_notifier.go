package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/muelita-bot/internal/appointments"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// AppointmentNotifier emails clinic staff whenever the scheduling flow
// completes. It satisfies appointments.Exporter so it can be attached as a sink.
type AppointmentNotifier struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

func NewAppointmentNotifier(sender EmailSender, recipient string, logger *logging.Logger) *AppointmentNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentNotifier{sender: sender, recipient: strings.TrimSpace(recipient), logger: logger}
}

func (n *AppointmentNotifier) Export(ctx context.Context, rec appointments.Record) error {
	if n.sender == nil || n.recipient == "" {
		n.logger.Debug("appointment notifier disabled", "sender", rec.SenderID)
		return nil
	}
	return n.sender.Send(ctx, BuildAppointmentEmail(n.recipient, rec))
}

// BuildAppointmentEmail renders the staff notification for a request.
func BuildAppointmentEmail(to string, rec appointments.Record) EmailMessage {
	subject := fmt.Sprintf("Nueva solicitud de cita: %s", rec.Name)

	var text strings.Builder
	text.WriteString("Se recibió una nueva solicitud de cita por WhatsApp.\n\n")
	fmt.Fprintf(&text, "Nombre: %s\n", rec.Name)
	fmt.Fprintf(&text, "Motivo: %s\n", rec.Reason)
	fmt.Fprintf(&text, "WhatsApp: +%s\n", rec.SenderID)
	fmt.Fprintf(&text, "Fecha de solicitud: %s\n", rec.Timestamp())

	var body strings.Builder
	body.WriteString("<p>Se recibió una nueva solicitud de cita por WhatsApp.</p><ul>")
	fmt.Fprintf(&body, "<li><strong>Nombre:</strong> %s</li>", html.EscapeString(rec.Name))
	fmt.Fprintf(&body, "<li><strong>Motivo:</strong> %s</li>", html.EscapeString(rec.Reason))
	fmt.Fprintf(&body, "<li><strong>WhatsApp:</strong> +%s</li>", html.EscapeString(rec.SenderID))
	fmt.Fprintf(&body, "<li><strong>Fecha de solicitud:</strong> %s</li>", rec.Timestamp())
	body.WriteString("</ul>")

	return EmailMessage{
		To:      to,
		ToName:  "Doctor Muelita",
		Subject: subject,
		Body:    text.String(),
		HTML:    body.String(),
	}
}
