package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisNotifier publishes notifications on a Redis channel and keeps them in
// a pending hash until a client has seen them.
type RedisNotifier struct {
	client     *redis.Client
	channel    string
	pendingKey string
	logger     *zap.Logger
}

func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{
		client:     client,
		channel:    data.RedisNotManNotificationKey,
		pendingKey: data.RedisNotManPendingNotificationKey,
		logger:     logger,
	}
}

func (r *RedisNotifier) Notify(ctx context.Context, n data.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.pendingKey, n.ID, payload)
		pipe.Expire(ctx, r.pendingKey, data.DefaultRedisNotificationTTLDuration)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store pending notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Pending returns the notifications no client has acknowledged yet.
func (r *RedisNotifier) Pending(ctx context.Context) ([]data.Notification, error) {
	entries, err := r.client.HGetAll(ctx, r.pendingKey).Result()
	if err != nil {
		return nil, err
	}
	notifications := make([]data.Notification, 0, len(entries))
	for _, raw := range entries {
		var n data.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			r.logger.Error("Failed to unmarshal pending notification", zap.Error(err))
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// Acknowledge drops delivered notifications from the pending hash.
func (r *RedisNotifier) Acknowledge(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.client.HDel(ctx, r.pendingKey, ids...).Err()
}

// Listen relays every published notification to handle until ctx is done.
func (r *RedisNotifier) Listen(ctx context.Context, handle func(n data.Notification, payload string)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var n data.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				r.logger.Error("Failed to unmarshal Redis message", zap.Error(err))
				continue
			}
			handle(n, msg.Payload)
		}
	}
}
