// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list session actions are pushed onto.
const DefaultQueueName = "kissingyou_session_actions"

var ErrNoClient = errors.New("redis client not configured")

// SessionActionRecord is one entry of the session telemetry stream.
type SessionActionRecord struct {
	SessionID     uuid.UUID              `json:"session_id"`
	RoomID        uuid.UUID              `json:"room_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Publisher pushes session actions onto a Redis list for downstream consumers
// (dashboards, replay tooling). A nil *Publisher is valid and drops everything.
type Publisher struct {
	Rdb       *redis.Client
	QueueName string
}

// ConnectRedis dials addr/db and pings it before returning a Publisher.
func ConnectRedis(addr string, db int, queueName string) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return NewPublisher(rdb, queueName), nil
}

// NewPublisher wraps an existing client. An empty queueName selects DefaultQueueName.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Publisher{Rdb: rdb, QueueName: queueName}
}

// PublishSessionAction serializes the record and RPushes it to the queue.
func (p *Publisher) PublishSessionAction(ctx context.Context, record SessionActionRecord) error {
	if p == nil || p.Rdb == nil {
		return ErrNoClient
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionActionRecord: %w", err)
	}
	if err := p.Rdb.RPush(ctx, p.QueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.QueueName, err)
	}
	return nil
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	if p == nil || p.Rdb == nil {
		return nil
	}
	return p.Rdb.Close()
}
