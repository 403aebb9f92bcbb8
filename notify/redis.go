package notify

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const (
	actionSchedule = "schedule"
	actionCancel   = "cancel"
)

// RedisNotifier publishes notification actions to a Redis pub/sub channel.
// The device shell subscribes to the channel and renders the system
// notifications.
type RedisNotifier struct {
	redis   *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing to channel on client.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{redis: client, channel: channel}
}

type channelMessage struct {
	Action string    `json:"action"`
	ID     uint32    `json:"id"`
	Title  string    `json:"title,omitempty"`
	Body   string    `json:"body,omitempty"`
	At     time.Time `json:"at"`
}

// Schedule publishes a schedule action carrying the notification payload.
func (n *RedisNotifier) Schedule(ctx context.Context, notification Notification) error {
	return n.publish(ctx, channelMessage{
		Action: actionSchedule,
		ID:     notification.ID,
		Title:  notification.Title,
		Body:   notification.Body,
		At:     notification.At,
	})
}

// Cancel publishes a cancel action for the numeric id.
func (n *RedisNotifier) Cancel(ctx context.Context, id uint32) error {
	return n.publish(ctx, channelMessage{Action: actionCancel, ID: id})
}

func (n *RedisNotifier) publish(ctx context.Context, msg channelMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	return n.redis.Publish(ctx, n.channel, data).Err()
}
