package notification

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/notification"
)

// EventsChannel is the Redis channel external consumers subscribe to.
const EventsChannel = "workflow.events"

// RedisPublisher puts workflow events on the shared Redis bus.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, event notification.WorkflowEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, EventsChannel, payload).Err()
}
