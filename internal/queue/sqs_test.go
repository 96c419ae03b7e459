package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/muelita-bot/internal/conversation"
)

// fakeSQS is an in-memory queue good enough for send/receive/delete round trips.
type fakeSQS struct {
	mu         sync.Mutex
	sent       []*sqs.SendMessageInput
	pending    []sqstypes.Message
	deleted    []string
	sendErr    error
	receiveErr error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, in)
	id := aws.ToString(in.MessageDeduplicationId)
	f.pending = append(f.pending, sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("rh-" + id),
		Body:          in.MessageBody,
	})
	return &sqs.SendMessageOutput{MessageId: aws.String(id)}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	n := int(in.MaxNumberOfMessages)
	if n > len(f.pending) {
		n = len(f.pending)
	}
	out := f.pending[:n]
	f.pending = f.pending[n:]
	return &sqs.ReceiveMessageOutput{Messages: out}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

const fifoURL = "http://localhost:4566/000000000000/conversations.fifo"

func sampleEvent(id string) conversation.InboundEvent {
	return conversation.InboundEvent{
		From:       "51999888777",
		ID:         id,
		Type:       conversation.EventTypeText,
		Text:       "Hola",
		SenderName: "Ana Torres",
		Timestamp:  time.Date(2024, 5, 3, 19, 7, 9, 0, time.UTC),
	}
}

func TestSQSQueueSubmitUsesSenderGroupOnFIFO(t *testing.T) {
	fake := &fakeSQS{}
	q := newSQSQueue(fake, fifoURL)

	require.NoError(t, q.Submit(context.Background(), sampleEvent("wamid.1")))

	require.Len(t, fake.sent, 1)
	assert.Equal(t, fifoURL, aws.ToString(fake.sent[0].QueueUrl))
	assert.Equal(t, "51999888777", aws.ToString(fake.sent[0].MessageGroupId))
	assert.Equal(t, "wamid.1", aws.ToString(fake.sent[0].MessageDeduplicationId))
	assert.JSONEq(t, `{"from":"51999888777","id":"wamid.1","type":"text","text":"Hola","sender_name":"Ana Torres","timestamp":"2024-05-03T19:07:09Z"}`,
		aws.ToString(fake.sent[0].MessageBody))
}

func TestSQSQueueSubmitStandardQueueHasNoGroup(t *testing.T) {
	fake := &fakeSQS{}
	q := newSQSQueue(fake, "http://localhost:4566/000000000000/conversations")

	require.NoError(t, q.Submit(context.Background(), sampleEvent("wamid.1")))
	assert.Nil(t, fake.sent[0].MessageGroupId)
	assert.Nil(t, fake.sent[0].MessageDeduplicationId)
}

func TestSQSQueueSubmitError(t *testing.T) {
	q := newSQSQueue(&fakeSQS{sendErr: errors.New("throttled")}, fifoURL)
	assert.ErrorContains(t, q.Submit(context.Background(), sampleEvent("w")), "throttled")
}

func TestSQSQueueReceiveDecodesEvents(t *testing.T) {
	fake := &fakeSQS{}
	q := newSQSQueue(fake, fifoURL)
	require.NoError(t, q.Submit(context.Background(), sampleEvent("wamid.1")))
	fake.pending = append(fake.pending, sqstypes.Message{MessageId: aws.String("bad"), ReceiptHandle: aws.String("rh-bad"), Body: aws.String("{")})

	msgs, err := q.Receive(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.NoError(t, msgs[0].Err)
	assert.Equal(t, sampleEvent("wamid.1"), msgs[0].Event)
	assert.Equal(t, "rh-wamid.1", msgs[0].ReceiptHandle)
	assert.Error(t, msgs[1].Err)
}

func TestSQSQueueDeleteSkipsEmptyHandle(t *testing.T) {
	fake := &fakeSQS{}
	q := newSQSQueue(fake, fifoURL)
	require.NoError(t, q.Delete(context.Background(), ""))
	require.NoError(t, q.Delete(context.Background(), "rh-1"))
	assert.Equal(t, []string{"rh-1"}, fake.deleted)
}

func TestNewSQSQueuePanics(t *testing.T) {
	assert.Panics(t, func() { NewSQSQueue(nil, fifoURL) })
	assert.Panics(t, func() { newSQSQueue(&fakeSQS{}, "") })
}
