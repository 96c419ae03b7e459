package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/internal/observability/metrics"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

const (
	defaultGraphBaseURL = "https://graph.facebook.com"
	defaultAPIVersion   = "v21.0"
	defaultHTTPTimeout  = 10 * time.Second

	// MaxButtons is the Cloud API limit for reply buttons in one message.
	MaxButtons = 3
)

var (
	ErrTooManyButtons = errors.New("whatsapp: at most 3 reply buttons are allowed")
	ErrNoButtons      = errors.New("whatsapp: at least one reply button is required")
)

var tracer = otel.Tracer("muelita.internal.channels.whatsapp")

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	apiVersion    string
	httpClient    *http.Client
	metrics       *metrics.BotMetrics
	logger        *logging.Logger
}

var _ conversation.Messenger = (*Client)(nil)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithGraphBaseURL overrides the Graph API host (useful for testing).
func WithGraphBaseURL(base string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(base) != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(version) != "" {
			c.apiVersion = version
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithClientMetrics(m *metrics.BotMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithClientLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Cloud API client for one business phone number.
func NewClient(accessToken, phoneNumberID string, opts ...ClientOption) *Client {
	c := &Client{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       defaultGraphBaseURL,
		apiVersion:    defaultAPIVersion,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:        logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendText sends a plain text message, quoting replyToID when set.
func (c *Client) SendText(ctx context.Context, to, body, replyToID string) error {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: body},
	}
	if replyToID != "" {
		req.Context = &messageContext{MessageID: replyToID}
	}
	_, err := c.send(ctx, "text", req)
	return err
}

// SendButtons sends an interactive message with up to three reply buttons.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []conversation.Button) error {
	if len(buttons) == 0 {
		return ErrNoButtons
	}
	if len(buttons) > MaxButtons {
		return ErrTooManyButtons
	}
	replies := make([]replyButton, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, replyButton{Type: "reply", Reply: buttonReply{ID: b.ID, Title: b.Title}})
	}
	req := sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &interactive{
			Type:   "button",
			Body:   interactiveBody{Text: body},
			Action: interactiveAction{Buttons: replies},
		},
	}
	_, err := c.send(ctx, "buttons", req)
	return err
}

// SendMedia sends a link-based document, image, video or audio message.
func (c *Client) SendMedia(ctx context.Context, to string, media conversation.Media) error {
	obj := &mediaObject{Link: media.URL, Caption: media.Caption}
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             string(media.Kind),
	}
	switch media.Kind {
	case conversation.MediaDocument:
		req.Document = obj
	case conversation.MediaImage:
		req.Image = obj
	case conversation.MediaVideo:
		req.Video = obj
	case conversation.MediaAudio:
		// Audio messages do not accept captions.
		obj.Caption = ""
		req.Audio = obj
	default:
		return fmt.Errorf("whatsapp: unsupported media kind %q", media.Kind)
	}
	_, err := c.send(ctx, "media", req)
	return err
}

// SendContact sends a contact card.
func (c *Client) SendContact(ctx context.Context, to string, contact conversation.Contact) error {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "contacts",
		Contacts:         []contactCard{toContactCard(contact)},
	}
	_, err := c.send(ctx, "contact", req)
	return err
}

// SendLocation sends a map pin.
func (c *Client) SendLocation(ctx context.Context, to string, loc conversation.Location) error {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "location",
		Location: &locationBody{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Name:      loc.Name,
			Address:   loc.Address,
		},
	}
	_, err := c.send(ctx, "location", req)
	return err
}

// MarkAsRead sends a read receipt for an inbound message.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	_, err := c.send(ctx, "read", readReceipt{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
	return err
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
}

func (c *Client) send(ctx context.Context, kind string, payload any) (*SendResponse, error) {
	ctx, span := tracer.Start(ctx, "whatsapp.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("muelita.whatsapp.kind", kind))

	resp, err := c.do(ctx, payload)
	if err != nil {
		span.RecordError(err)
		c.metrics.ObserveOutbound(kind, "failed")
		c.logger.Error("whatsapp: send failed", "kind", kind, "error", err)
		return resp, err
	}
	c.metrics.ObserveOutbound(kind, "sent")
	return resp, nil
}

func (c *Client) do(ctx context.Context, payload any) (*SendResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}

	var sendResp SendResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &sendResp); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("whatsapp: unmarshal response: %w", err)
		}
	}
	if sendResp.Error != nil {
		sendResp.Error.HTTPStatus = resp.StatusCode
		return &sendResp, sendResp.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &sendResp, &APIError{HTTPStatus: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	return &sendResp, nil
}

func toContactCard(c conversation.Contact) contactCard {
	card := contactCard{
		Name: contactName{
			FormattedName: c.Name.FormattedName,
			FirstName:     c.Name.FirstName,
			LastName:      c.Name.LastName,
			MiddleName:    c.Name.MiddleName,
			Suffix:        c.Name.Suffix,
			Prefix:        c.Name.Prefix,
		},
	}
	if c.Org != (conversation.ContactOrg{}) {
		card.Org = &contactOrg{Company: c.Org.Company, Department: c.Org.Department, Title: c.Org.Title}
	}
	for _, a := range c.Addresses {
		card.Addresses = append(card.Addresses, contactAddress{
			Street:      a.Street,
			City:        a.City,
			State:       a.State,
			Zip:         a.Zip,
			Country:     a.Country,
			CountryCode: a.CountryCode,
			Type:        a.Type,
		})
	}
	for _, e := range c.Emails {
		card.Emails = append(card.Emails, contactEmail{Email: e.Email, Type: e.Type})
	}
	for _, p := range c.Phones {
		card.Phones = append(card.Phones, contactPhone{Phone: p.Phone, WaID: p.WaID, Type: p.Type})
	}
	for _, u := range c.URLs {
		card.URLs = append(card.URLs, contactURL{URL: u.URL, Type: u.Type})
	}
	return card
}
