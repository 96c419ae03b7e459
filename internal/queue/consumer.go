package queue

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

type receiver interface {
	Receive(ctx context.Context, maxMessages, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type submitter interface {
	Submit(ctx context.Context, evt conversation.InboundEvent) error
}

// Consumer long-polls the queue and hands events to the local worker.
// A message is deleted once the worker accepted it; undecodable messages are
// deleted immediately so they do not block their group.
type Consumer struct {
	queue       receiver
	worker      submitter
	logger      *logging.Logger
	maxMessages int
	waitSeconds int
	backoff     time.Duration
}

// ConsumerConfig tunes polling.
type ConsumerConfig struct {
	MaxMessages int
	WaitSeconds int
	Backoff     time.Duration
}

func NewConsumer(q receiver, worker submitter, cfg ConsumerConfig, logger *logging.Logger) *Consumer {
	if q == nil || worker == nil {
		panic("queue: consumer needs a queue and a worker")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxMessages <= 0 || cfg.MaxMessages > 10 {
		cfg.MaxMessages = 10
	}
	if cfg.WaitSeconds < 0 || cfg.WaitSeconds > 20 {
		cfg.WaitSeconds = 20
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Consumer{
		queue:       q,
		worker:      worker,
		logger:      logger,
		maxMessages: cfg.MaxMessages,
		waitSeconds: cfg.WaitSeconds,
		backoff:     cfg.Backoff,
	}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.poll(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("queue: poll failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
		}
	}
}

func (c *Consumer) poll(ctx context.Context) error {
	messages, err := c.queue.Receive(ctx, c.maxMessages, c.waitSeconds)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		if msg.Err != nil {
			c.logger.Error("queue: dropping malformed message", "message_id", msg.ID, "error", msg.Err)
			c.delete(ctx, msg)
			continue
		}
		if err := c.worker.Submit(ctx, msg.Event); err != nil {
			// Left on the queue for redelivery after the visibility timeout.
			c.logger.Warn("queue: worker rejected event", "message_id", msg.ID, "sender", msg.Event.From, "error", err)
			return err
		}
		c.delete(ctx, msg)
	}
	return nil
}

func (c *Consumer) delete(ctx context.Context, msg Message) {
	if err := c.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		c.logger.Warn("queue: delete failed", "message_id", msg.ID, "error", err)
	}
}
