package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror writes presence transitions to Redis keyed by user id, so a
// future multi-instance gateway can answer IsOnline across processes. Keys
// carry a TTL as a safety net against an instance dying without cleanup.
type RedisMirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisMirror(client *redis.Client, prefix string, ttl time.Duration) *RedisMirror {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisMirror{client: client, prefix: prefix, ttl: ttl}
}

func (m *RedisMirror) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", m.prefix, userID)
}

func (m *RedisMirror) SetOnline(ctx context.Context, userID string) error {
	b, _ := json.Marshal(map[string]any{"status": "online", "since": time.Now().Unix()})
	return m.client.Set(ctx, m.key(userID), b, m.ttl).Err()
}

func (m *RedisMirror) SetOffline(ctx context.Context, userID string) error {
	b, _ := json.Marshal(map[string]any{"status": "offline", "lastSeen": time.Now().Unix()})
	return m.client.Set(ctx, m.key(userID), b, m.ttl).Err()
}

var _ Mirror = (*RedisMirror)(nil)
