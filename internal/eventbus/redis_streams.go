package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"civicwatch/internal/events"
)

const (
	// StreamName is the Redis stream all report events are appended to.
	StreamName = "civicwatch-events"
)

// RedisEventBus implements Bus on Redis Streams so external collaborators
// (notification services, analytics) can consume report events.
type RedisEventBus struct {
	client *redis.Client
}

// NewRedisEventBus connects to Redis and verifies the connection.
func NewRedisEventBus(host, port string) (*RedisEventBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port),
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisEventBus{client: client}, nil
}

// Publish appends the event to the stream.
func (r *RedisEventBus) Publish(ctx context.Context, event *events.Event) error {
	eventJSON, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]interface{}{
			"event_id":   event.EventID,
			"event_type": event.EventType,
			"report_id":  event.ReportID,
			"payload":    string(eventJSON),
			"timestamp":  event.Timestamp.Format(time.RFC3339),
		},
	}

	if _, err := r.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Printf("[EVENT] Published %s for report %s", event.EventType, event.ReportID)
	return nil
}

// CreateConsumerGroup creates a consumer group if it doesn't exist.
func (r *RedisEventBus) CreateConsumerGroup(ctx context.Context, consumerGroup string) error {
	err := r.client.XGroupCreateMkStream(ctx, StreamName, consumerGroup, "0").Err()
	if err != nil {
		// ignore error if the group already exists
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("failed to create consumer group: %w", err)
		}
	}
	return nil
}

// Consume reads events from the stream on behalf of a consumer group and
// hands them to handler, acknowledging each one that succeeds.
func (r *RedisEventBus) Consume(ctx context.Context, consumerGroup, consumerName string, handler func(*events.Event) error) error {
	if err := r.CreateConsumerGroup(ctx, consumerGroup); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    consumerGroup,
				Consumer: consumerName,
				Streams:  []string{StreamName, ">"},
				Count:    50,
				Block:    1 * time.Second,
			}).Result()

			if err != nil {
				if err == redis.Nil {
					continue
				}
				log.Printf("Error reading from stream: %v", err)
				time.Sleep(1 * time.Second)
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					event, err := r.parseMessage(message)
					if err != nil {
						log.Printf("Error parsing message: %v", err)
						continue
					}

					if err := handler(event); err != nil {
						log.Printf("Error processing event %s: %v", event.EventID, err)
						continue
					}

					if err := r.client.XAck(ctx, StreamName, consumerGroup, message.ID).Err(); err != nil {
						log.Printf("Error acknowledging message: %v", err)
					}
				}
			}
		}
	}
}

func (r *RedisEventBus) parseMessage(message redis.XMessage) (*events.Event, error) {
	payload, ok := message.Values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid payload in message")
	}

	var event events.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

// Close closes the Redis connection.
func (r *RedisEventBus) Close() error {
	return r.client.Close()
}
