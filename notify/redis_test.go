package notify

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

func TestRedisNotifierPublishesActions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "notifications")
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("confirm subscription: %v", err)
	}

	n := NewRedisNotifier(client, "notifications")
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if err := n.Schedule(ctx, Notification{ID: 42, Title: "Task due", Body: "Pay rent", At: at}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := n.Cancel(ctx, 42); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	first, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive schedule message: %v", err)
	}
	var scheduled channelMessage
	if err := sonic.Unmarshal([]byte(first.Payload), &scheduled); err != nil {
		t.Fatalf("decode schedule message %q: %v", first.Payload, err)
	}
	if scheduled.Action != "schedule" || scheduled.ID != 42 || scheduled.Body != "Pay rent" {
		t.Fatalf("unexpected schedule message %+v", scheduled)
	}
	if !scheduled.At.Equal(at) {
		t.Fatalf("expected at %v, got %v", at, scheduled.At)
	}

	second, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive cancel message: %v", err)
	}
	var canceled channelMessage
	if err := sonic.Unmarshal([]byte(second.Payload), &canceled); err != nil {
		t.Fatalf("decode cancel message %q: %v", second.Payload, err)
	}
	if canceled.Action != "cancel" || canceled.ID != 42 {
		t.Fatalf("unexpected cancel message %+v", canceled)
	}
}
