package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/highscores/internal/domain/model"
)

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub(WithBufferSize(4))
	ctx := context.Background()

	id, ch, err := h.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if n := h.Subscribers(); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}

	ev := Event{Kind: model.ChangeRegistered, ID: 1, Username: "alice", Highscore: 10, At: time.Now()}
	h.Publish(ctx, ev)

	select {
	case got := <-ch:
		if got.ID != 1 || got.Kind != model.ChangeRegistered {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	h.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	h.Unsubscribe(id) // unknown id is a no-op
	if n := h.Subscribers(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub(WithBufferSize(1))
	ctx := context.Background()

	_, ch, err := h.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := int64(0); i < 10; i++ {
			h.Publish(ctx, Event{Kind: model.ChangeScoreUpdated, ID: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	if got := <-ch; got.ID != 0 {
		t.Errorf("expected the first event to be kept, got id %d", got.ID)
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	_, ch, err := h.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("expected subscriber channel to be closed")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if _, _, err := h.Subscribe(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// publishing after close must not panic
	h.Publish(context.Background(), Event{ID: 1})
}
