package bootstrap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/muelita-bot/internal/config"
	"github.com/wolfman30/muelita-bot/internal/conversation"
)

func pipelineConfig() *appconfig.Config {
	return &appconfig.Config{
		LLMProvider:           "openai",
		OpenAIAPIKey:          "sk-test",
		WhatsAppAccessToken:   "token",
		WhatsAppPhoneNumberID: "123",
		WhatsAppAPIVersion:    "v21.0",
		WhatsAppGraphBaseURL:  "http://127.0.0.1:1",
		WorkerCount:           2,
		WorkerLaneBuffer:      4,
		EventTimeout:          time.Second,
		SessionTTL:            time.Hour,
		ClinicTimezone:        "America/Lima",
	}
}

func TestBuildPipelineWithMemorySessions(t *testing.T) {
	p, err := BuildPipeline(context.Background(), pipelineConfig(), PipelineDeps{Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	assert.NotNil(t, p.Client)
	assert.NotNil(t, p.Router)
	assert.NotNil(t, p.Worker)
	require.NotNil(t, p.MemorySessions)
	assert.Same(t, p.MemorySessions, p.Sessions)
}

func TestBuildPipelineWithRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), false)
	t.Cleanup(func() { _ = client.Close() })

	cfg := pipelineConfig()
	cfg.SessionStore = "redis"
	p, err := BuildPipeline(context.Background(), cfg, PipelineDeps{Redis: client, Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	assert.Nil(t, p.MemorySessions)
	assert.IsType(t, &conversation.RedisSessionStore{}, p.Sessions)
}

func TestBuildSessionStoreKeepsMemoryByDefault(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, quietLogger(), false)
	t.Cleanup(func() { _ = client.Close() })

	cfg := pipelineConfig()
	assert.IsType(t, &conversation.MemorySessionStore{}, BuildSessionStore(cfg, client, quietLogger()))

	cfg.SessionStore = "redis"
	assert.IsType(t, &conversation.MemorySessionStore{}, BuildSessionStore(cfg, nil, quietLogger()))
}

func TestBuildPipelineUnknownProvider(t *testing.T) {
	cfg := pipelineConfig()
	cfg.LLMProvider = "mistral"
	_, err := BuildPipeline(context.Background(), cfg, PipelineDeps{Logger: quietLogger()})
	assert.Error(t, err)
}

func TestRunSessionSweeperStopsOnCancel(t *testing.T) {
	now := time.Now()
	store := conversation.NewMemorySessionStore(
		conversation.WithSessionTTL(time.Millisecond),
		conversation.WithSessionClock(func() time.Time { return now }),
	)
	require.NoError(t, store.Save(context.Background(), "519", conversation.Consulting{Step: conversation.StepQuestion}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSessionSweeper(ctx, store, 5*time.Millisecond, quietLogger())
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRunSessionSweeperDisabled(t *testing.T) {
	// Returns immediately without a store or interval.
	RunSessionSweeper(context.Background(), nil, time.Second, quietLogger())
	RunSessionSweeper(context.Background(), conversation.NewMemorySessionStore(), 0, quietLogger())
}

// gatedHandler holds events until release is closed and records the context
// state each event saw.
type gatedHandler struct {
	release chan struct{}
	mu      sync.Mutex
	errs    []error
}

func (h *gatedHandler) HandleEvent(ctx context.Context, _ conversation.InboundEvent) error {
	select {
	case <-h.release:
	case <-ctx.Done():
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, ctx.Err())
	return nil
}

func (h *gatedHandler) seen() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

func singleLanePipeline(h conversation.EventHandler) *Pipeline {
	return &Pipeline{Worker: conversation.NewWorker(h,
		conversation.WithWorkerCount(1),
		conversation.WithLaneBuffer(4),
		conversation.WithEventTimeout(time.Second),
		conversation.WithWorkerLogger(quietLogger()),
	)}
}

func TestPipelineShutdownDrainsAfterSignal(t *testing.T) {
	h := &gatedHandler{release: make(chan struct{})}
	p := singleLanePipeline(h)

	signalCtx, interrupt := context.WithCancel(context.Background())
	p.Start(signalCtx)
	for _, id := range []string{"wamid.1", "wamid.2", "wamid.3"} {
		require.NoError(t, p.Worker.Submit(context.Background(), conversation.InboundEvent{From: "519", ID: id}))
	}

	interrupt()
	close(h.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, []error{nil, nil, nil}, h.seen())
}

func TestPipelineShutdownGivesUpAfterTimeout(t *testing.T) {
	h := &gatedHandler{release: make(chan struct{})}
	p := singleLanePipeline(h)
	p.Start(context.Background())
	require.NoError(t, p.Worker.Submit(context.Background(), conversation.InboundEvent{From: "519", ID: "wamid.1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	// The stuck event is cancelled rather than left running.
	require.Eventually(t, func() bool { return len(h.seen()) == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.seen()[0], context.Canceled)
}
