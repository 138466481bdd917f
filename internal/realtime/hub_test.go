package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan Message, timeout time.Duration) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for message")
	}
	return Message{}
}

func TestHubDeliversInOrderPerChannel(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	t.Cleanup(func() { _ = hub.Close() })
	ctx := context.Background()

	got := make(chan Message, 4)
	if _, err := hub.Subscribe(ctx, ChannelStorage, func(m Message) { got <- m }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	other := make(chan Message, 1)
	if _, err := hub.Subscribe(ctx, ChannelSession, func(m Message) { other <- m }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for _, origin := range []string{"a", "b"} {
		msg, err := NewMessage(ChannelStorage, EventStorageChanged, origin, map[string]string{"key": "k"})
		if err != nil {
			t.Fatalf("NewMessage: %v", err)
		}
		if err := hub.Publish(ctx, msg); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	if first := recvMessage(t, got, time.Second); first.Origin != "a" {
		t.Fatalf("first origin: got=%q", first.Origin)
	}
	second := recvMessage(t, got, time.Second)
	if second.Origin != "b" {
		t.Fatalf("second origin: got=%q", second.Origin)
	}
	var payload map[string]string
	if err := second.Decode(&payload); err != nil || payload["key"] != "k" {
		t.Fatalf("Decode: payload=%v err=%v", payload, err)
	}

	select {
	case m := <-other:
		t.Fatalf("session subscriber received storage message: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	t.Cleanup(func() { _ = hub.Close() })
	ctx := context.Background()

	got := make(chan Message, 2)
	cancel, err := hub.Subscribe(ctx, ChannelSession, func(m Message) { got <- m })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	if err := hub.Publish(ctx, Message{Channel: ChannelSession, Event: EventSessionExpired}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		t.Fatalf("unexpected delivery after cancel: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRejectsAfterClose(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := hub.Publish(context.Background(), Message{Channel: ChannelSession}); err != ErrHubClosed {
		t.Fatalf("Publish after close: got=%v", err)
	}
	if _, err := hub.Subscribe(context.Background(), ChannelSession, func(Message) {}); err != ErrHubClosed {
		t.Fatalf("Subscribe after close: got=%v", err)
	}
}

func TestHubSlowSubscriberMissesNothing(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	t.Cleanup(func() { _ = hub.Close() })
	ctx := context.Background()

	const total = 2000
	release := make(chan struct{})
	got := make(chan Message, total)
	if _, err := hub.Subscribe(ctx, ChannelStorage, func(m Message) {
		<-release
		got <- m
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 0; i < total; i++ {
		msg, err := NewMessage(ChannelStorage, EventStorageChanged, "tab", map[string]int{"n": i})
		if err != nil {
			t.Fatalf("NewMessage: %v", err)
		}
		if err := hub.Publish(ctx, msg); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}
	close(release)

	for i := 0; i < total; i++ {
		var payload map[string]int
		if err := recvMessage(t, got, 2*time.Second).Decode(&payload); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if payload["n"] != i {
			t.Fatalf("message %d arrived as %d", i, payload["n"])
		}
	}
}
