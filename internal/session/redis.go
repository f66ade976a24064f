package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	defaultTTL       = 24 * time.Hour
)

type redisRecord struct {
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Turns       []Turn    `json:"turns"`
}

// RedisStore keeps sessions in Redis under a key TTL, so long-lived processes
// do not accumulate keys for abandoned conversations. The TTL is refreshed on
// every read and write.
type RedisStore struct {
	client   *redis.Client
	ttl      time.Duration
	maxTurns int
}

func NewRedisStore(client *redis.Client, ttl time.Duration, maxTurns int) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, maxTurns: maxTurns}
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]Turn, error) {
	rec, err := s.load(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	// TTL refresh failure is not worth failing the read
	_ = s.client.Expire(ctx, s.key(id), s.ttl).Err()
	return rec.Turns, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	if rec == nil {
		rec = &redisRecord{SessionID: id, CreatedAt: now}
	}
	rec.Turns = append(rec.Turns, turns...)
	rec.LastUpdated = now
	if s.maxTurns > 0 && len(rec.Turns) > s.maxTurns {
		rec.Turns = rec.Turns[len(rec.Turns)-s.maxTurns:]
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(id), val, s.ttl).Err()
}

func (s *RedisStore) Info(ctx context.Context, id string) (*Info, error) {
	rec, err := s.load(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return &Info{
		SessionID:   id,
		CreatedAt:   rec.CreatedAt,
		LastUpdated: rec.LastUpdated,
		TurnCount:   len(rec.Turns),
	}, nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) load(ctx context.Context, id string) (*redisRecord, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec redisRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}
