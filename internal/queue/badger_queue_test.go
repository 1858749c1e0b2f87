package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/corpus/internal/models"
)

func newTestQueue(t *testing.T, visibilityTimeout time.Duration, maxReceive int) *BadgerQueue {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	q, err := NewBadgerQueue(db, "test", visibilityTimeout, maxReceive)
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	return q
}

func TestBadgerQueue_EnqueueReceiveAck(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	if err := q.Enqueue(ctx, Message{Type: MessageTypeParseJob, JobID: "job-1"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	msg, ack, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if msg.Type != MessageTypeParseJob || msg.JobID != "job-1" {
		t.Errorf("unexpected message: %+v", msg)
	}

	if err := ack(); err != nil {
		t.Fatalf("ack failed: %v", err)
	}

	// Acknowledged messages do not come back
	if _, _, err := q.Receive(ctx); !errors.Is(err, models.ErrNoMessage) {
		t.Errorf("expected ErrNoMessage after ack, got %v", err)
	}
}

func TestBadgerQueue_EmptyQueue(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)

	if _, _, err := q.Receive(context.Background()); !errors.Is(err, models.ErrNoMessage) {
		t.Errorf("expected ErrNoMessage, got %v", err)
	}
}

func TestBadgerQueue_InFlightMessageIsInvisible(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	if err := q.Enqueue(ctx, Message{Type: MessageTypeParseJob, JobID: "job-1"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	_, _, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	// Unacknowledged but within the visibility window
	if _, _, err := q.Receive(ctx); !errors.Is(err, models.ErrNoMessage) {
		t.Errorf("expected in-flight message to be invisible, got %v", err)
	}
}

func TestBadgerQueue_RedeliveryAfterVisibilityTimeout(t *testing.T) {
	q := newTestQueue(t, 20*time.Millisecond, 3)
	ctx := context.Background()

	if err := q.Enqueue(ctx, Message{Type: MessageTypeParseJob, JobID: "job-1"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if _, _, err := q.Receive(ctx); err != nil {
		t.Fatalf("first Receive failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	msg, ack, err := q.Receive(ctx)
	if err != nil {
		t.Fatalf("expected redelivery, got %v", err)
	}
	if msg.JobID != "job-1" {
		t.Errorf("unexpected redelivered message: %+v", msg)
	}
	if err := ack(); err != nil {
		t.Fatalf("ack failed: %v", err)
	}
}

func TestBadgerQueue_PoisonMessageDropped(t *testing.T) {
	q := newTestQueue(t, 10*time.Millisecond, 2)
	ctx := context.Background()

	if err := q.Enqueue(ctx, Message{Type: MessageTypeParseJob, JobID: "job-1"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Burn through maxReceive deliveries without acknowledging
	for i := 0; i < 2; i++ {
		if _, _, err := q.Receive(ctx); err != nil {
			t.Fatalf("Receive %d failed: %v", i+1, err)
		}
		time.Sleep(30 * time.Millisecond)
	}

	// The message has hit its delivery cap and is dropped
	if _, _, err := q.Receive(ctx); !errors.Is(err, models.ErrNoMessage) {
		t.Errorf("expected poison message to be dropped, got %v", err)
	}
}

func TestBadgerQueue_FIFOWithinReadySet(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		if err := q.Enqueue(ctx, Message{Type: MessageTypeParseJob, JobID: id}); err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", id, err)
		}
		// Distinct enqueue timestamps keep index keys ordered
		time.Sleep(time.Millisecond)
	}

	for _, want := range []string{"job-1", "job-2", "job-3"} {
		msg, ack, err := q.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive failed: %v", err)
		}
		if msg.JobID != want {
			t.Errorf("expected %s, got %s", want, msg.JobID)
		}
		if err := ack(); err != nil {
			t.Fatalf("ack failed: %v", err)
		}
	}
}

func TestBadgerQueue_Extend(t *testing.T) {
	q := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	if err := q.Enqueue(ctx, Message{Type: MessageTypeParseJob, JobID: "job-1"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := q.Extend(ctx, "unknown-id", time.Minute); err == nil {
		t.Error("expected error extending unknown message")
	}
}

func TestNewBadgerQueue_Validation(t *testing.T) {
	if _, err := NewBadgerQueue(nil, "test", time.Minute, 3); err == nil {
		t.Error("expected error for nil db")
	}

	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	defer db.Close()

	if _, err := NewBadgerQueue(db, "", time.Minute, 3); err == nil {
		t.Error("expected error for empty queue name")
	}

	// Non-positive settings fall back to defaults
	q, err := NewBadgerQueue(db, "test", 0, 0)
	if err != nil {
		t.Fatalf("NewBadgerQueue failed: %v", err)
	}
	if q.visibilityTimeout != 5*time.Minute {
		t.Errorf("expected default visibility timeout, got %v", q.visibilityTimeout)
	}
	if q.maxReceive != 3 {
		t.Errorf("expected default max receive, got %d", q.maxReceive)
	}
}
