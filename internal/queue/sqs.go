package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/muelita-bot/internal/conversation"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Message is one received queue entry.
type Message struct {
	ID            string
	ReceiptHandle string
	Event         conversation.InboundEvent
	// Err is set when the body could not be decoded.
	Err error
}

// eventPayload is the JSON body of a queued inbound event.
type eventPayload struct {
	From          string    `json:"from"`
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Text          string    `json:"text,omitempty"`
	ButtonReplyID string    `json:"button_reply_id,omitempty"`
	SenderName    string    `json:"sender_name,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// SQSQueue moves inbound events between the webhook API and conversation
// workers. On a FIFO queue each sender is its own message group, so
// per-sender order survives the hop.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
	fifo     bool
}

// NewSQSQueue creates a queue wrapper around the provided SQS client.
func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	if client == nil {
		panic("queue: SQS client cannot be nil")
	}
	return newSQSQueue(client, queueURL)
}

func newSQSQueue(client sqsAPI, queueURL string) *SQSQueue {
	if queueURL == "" {
		panic("queue: SQS queueURL cannot be empty")
	}
	return &SQSQueue{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// Submit publishes evt. It satisfies the webhook adapter's EventSubmitter.
func (q *SQSQueue) Submit(ctx context.Context, evt conversation.InboundEvent) error {
	body, err := json.Marshal(eventPayload(evt))
	if err != nil {
		return fmt.Errorf("queue: encode event: %w", err)
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if q.fifo {
		input.MessageGroupId = aws.String(evt.From)
		if evt.ID != "" {
			input.MessageDeduplicationId = aws.String(evt.ID)
		}
	}
	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send SQS message: %w", err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, maxMessages, waitSeconds int) ([]Message, error) {
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     int32(waitSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("queue: failed to receive SQS messages: %w", err)
	}

	messages := make([]Message, 0, len(output.Messages))
	for _, msg := range output.Messages {
		m := Message{
			ID:            aws.ToString(msg.MessageId),
			ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		}
		var payload eventPayload
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &payload); err != nil {
			m.Err = fmt.Errorf("queue: decode message %s: %w", m.ID, err)
		} else {
			m.Event = conversation.InboundEvent(payload)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return nil
	}
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("queue: failed to delete SQS message: %w", err)
	}
	return nil
}
