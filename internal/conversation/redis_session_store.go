package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore shares sessions between instances. Expiry is delegated
// to Redis key TTLs.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// storedSession is the JSON shape kept under session:{sender}.
type storedSession struct {
	Flow      string    `json:"flow"`
	Step      string    `json:"step"`
	Name      string    `json:"name,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRedisSessionStore stores sessions with the given idle ttl. ttl <= 0 keeps
// them until deleted.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisSessionStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisSessionStore) key(senderID string) string {
	return sessionKeyPrefix + senderID
}

func (s *RedisSessionStore) Load(ctx context.Context, senderID string) (State, error) {
	raw, err := s.client.Get(ctx, s.key(senderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Idle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("conversation: decode session: %w", err)
	}
	return stored.state(), nil
}

func (s *RedisSessionStore) Save(ctx context.Context, senderID string, state State) error {
	if isIdle(state) {
		return s.Delete(ctx, senderID)
	}
	stored := storedSession{Flow: state.Flow(), Step: StepOf(state), UpdatedAt: s.now().UTC()}
	if sch, ok := state.(Scheduling); ok {
		stored.Name = sch.Name
		stored.Reason = sch.Reason
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("conversation: encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(senderID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, senderID string) error {
	if err := s.client.Del(ctx, s.key(senderID)).Err(); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}

// Sessions lists active sessions ordered by sender id.
func (s *RedisSessionStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	out := []SessionInfo{}
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("conversation: list sessions: %w", err)
		}
		var stored storedSession
		if err := json.Unmarshal(raw, &stored); err != nil {
			continue
		}
		out = append(out, SessionInfo{
			SenderID:  strings.TrimPrefix(key, sessionKeyPrefix),
			Flow:      stored.Flow,
			Step:      stored.Step,
			UpdatedAt: stored.UpdatedAt,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("conversation: scan sessions: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SenderID < out[j].SenderID })
	return out, nil
}

func (s storedSession) state() State {
	switch s.Flow {
	case FlowAppointment:
		return Scheduling{Step: AppointmentStep(s.Step), Name: s.Name, Reason: s.Reason}
	case FlowAssistant:
		return Consulting{Step: AssistantStep(s.Step)}
	default:
		return Idle{}
	}
}
