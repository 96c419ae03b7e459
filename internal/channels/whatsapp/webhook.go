package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

const maxWebhookBody = 1 << 20

// WebhookHandler handles WhatsApp webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onEvent     func(ctx context.Context, evt conversation.InboundEvent)
	logger      *logging.Logger
}

// NewWebhookHandler creates a webhook handler. onEvent is called for each
// parsed inbound message after Meta has been acknowledged. With an empty
// appSecret signatures are not checked.
func NewWebhookHandler(verifyToken, appSecret string, onEvent func(context.Context, conversation.InboundEvent), logger *logging.Logger) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if appSecret == "" {
		logger.Warn("whatsapp: app secret not configured, webhook signatures will not be verified")
	}
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onEvent:     onEvent,
		logger:      logger,
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		h.logger.Info("whatsapp: webhook verified")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "whatsapp.webhook")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" {
		signature := r.Header.Get("X-Hub-Signature-256")
		if !VerifySignature(h.appSecret, body, signature) {
			h.logger.Warn("whatsapp: invalid webhook signature")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Must respond 200 quickly to avoid Meta retries
	w.WriteHeader(http.StatusOK)

	for _, evt := range ParseWebhookEvent(event) {
		if h.onEvent != nil {
			h.onEvent(ctx, evt)
		}
	}
}

// ParseWebhookEvent extracts inbound messages from a webhook event. Status
// updates are skipped. The sender display name comes from the contact whose
// wa_id matches the message sender.
func ParseWebhookEvent(event WebhookEvent) []conversation.InboundEvent {
	var out []conversation.InboundEvent

	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, m := range change.Value.Messages {
				evt := conversation.InboundEvent{
					From:       m.From,
					ID:         m.ID,
					Type:       m.Type,
					SenderName: names[m.From],
					Timestamp:  parseUnixSeconds(m.Timestamp),
				}
				if evt.SenderName == "" && len(change.Value.Contacts) == 1 {
					evt.SenderName = change.Value.Contacts[0].Profile.Name
				}

				switch m.Type {
				case conversation.EventTypeText:
					if m.Text != nil {
						evt.Text = m.Text.Body
					}
				case conversation.EventTypeInteractive:
					if m.Interactive != nil {
						switch {
						case m.Interactive.ButtonReply != nil:
							evt.ButtonReplyID = m.Interactive.ButtonReply.ID
							evt.Text = m.Interactive.ButtonReply.Title
						case m.Interactive.ListReply != nil:
							evt.ButtonReplyID = m.Interactive.ListReply.ID
							evt.Text = m.Interactive.ListReply.Title
						}
					}
				}

				out = append(out, evt)
			}
		}
	}

	return out
}

func parseUnixSeconds(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	// Signature format: "sha256=<hex>"
	const prefix = "sha256="
	if len(signature) <= len(prefix) || signature[:len(prefix)] != prefix {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}
