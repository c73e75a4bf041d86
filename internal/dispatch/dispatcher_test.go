package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"

	"github.com/driftblend/api/internal/model"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.JobEvent
}

func (n *recordingNotifier) JobEvent(event model.JobEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) statuses() []model.JobStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.JobStatus, len(n.events))
	for i, e := range n.events {
		out[i] = e.Status
	}
	return out
}

func newTestDispatcher() (*Dispatcher, *recordingNotifier) {
	d := New(nil, nil, nil, log.New(io.Discard))
	n := &recordingNotifier{}
	d.SetNotifier(n)
	return d, n
}

func makeTask(t *testing.T, operation, jobID string, enqueuedAt time.Time, payload interface{}) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	data, err := json.Marshal(envelope{
		JobID:      jobID,
		DedupKey:   "user1",
		EnqueuedAt: enqueuedAt,
		Payload:    raw,
	})
	if err != nil {
		t.Fatalf("encoding envelope: %v", err)
	}
	return asynq.NewTask(operation, data)
}

func TestWrap(t *testing.T) {
	ctx := context.Background()

	t.Run("Runs And Reports Success", func(t *testing.T) {
		d, n := newTestDispatcher()
		var gotPayload string
		d.Register("op", Options{}, func(ctx context.Context, payload []byte) (interface{}, error) {
			gotPayload = string(payload)
			return nil, nil
		})

		h := d.wrap("op", d.handlers["op"])
		if err := h(ctx, makeTask(t, "op", "job1", time.Now(), "hello")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotPayload != `"hello"` {
			t.Errorf("handler saw payload %q", gotPayload)
		}

		statuses := n.statuses()
		if len(statuses) != 2 || statuses[0] != model.JobStatusRunning || statuses[1] != model.JobStatusSucceeded {
			t.Errorf("unexpected lifecycle %v", statuses)
		}
	})

	t.Run("Drops Expired Jobs", func(t *testing.T) {
		d, n := newTestDispatcher()
		called := false
		d.Register("op", Options{ExpireAfter: time.Minute}, func(ctx context.Context, payload []byte) (interface{}, error) {
			called = true
			return nil, nil
		})

		h := d.wrap("op", d.handlers["op"])
		stale := time.Now().Add(-2 * time.Minute)
		if err := h(ctx, makeTask(t, "op", "job1", stale, nil)); err != nil {
			t.Fatalf("expired job must not surface an error, got %v", err)
		}
		if called {
			t.Error("expired job must not run")
		}

		statuses := n.statuses()
		if len(statuses) != 1 || statuses[0] != model.JobStatusExpired {
			t.Errorf("unexpected lifecycle %v", statuses)
		}
	})

	t.Run("Fresh Job Beats The Expiry Window", func(t *testing.T) {
		d, _ := newTestDispatcher()
		called := false
		d.Register("op", Options{ExpireAfter: time.Minute}, func(ctx context.Context, payload []byte) (interface{}, error) {
			called = true
			return nil, nil
		})

		h := d.wrap("op", d.handlers["op"])
		if err := h(ctx, makeTask(t, "op", "job1", time.Now(), nil)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !called {
			t.Error("fresh job must run")
		}
	})

	t.Run("Cancellation Is A Clean Stop", func(t *testing.T) {
		d, n := newTestDispatcher()
		d.Register("op", Options{}, func(ctx context.Context, payload []byte) (interface{}, error) {
			return nil, context.Canceled
		})

		h := d.wrap("op", d.handlers["op"])
		if err := h(ctx, makeTask(t, "op", "job1", time.Now(), nil)); err != nil {
			t.Fatalf("a cancelled run must not count as failed, got %v", err)
		}

		statuses := n.statuses()
		if len(statuses) != 2 || statuses[1] != model.JobStatusCancelled {
			t.Errorf("unexpected lifecycle %v", statuses)
		}
	})

	t.Run("Wrapped Cancellation Is Classified", func(t *testing.T) {
		// An aborted HTTP call surfaces the cancellation wrapped in a
		// transport error, never bare.
		d, n := newTestDispatcher()
		d.Register("op", Options{}, func(ctx context.Context, payload []byte) (interface{}, error) {
			return nil, fmt.Errorf("request failed: %w", context.Canceled)
		})

		h := d.wrap("op", d.handlers["op"])
		if err := h(ctx, makeTask(t, "op", "job1", time.Now(), nil)); err != nil {
			t.Fatalf("a cancelled run must not count as failed, got %v", err)
		}

		statuses := n.statuses()
		if len(statuses) != 2 || statuses[1] != model.JobStatusCancelled {
			t.Errorf("unexpected lifecycle %v", statuses)
		}
	})

	t.Run("Failures Surface", func(t *testing.T) {
		d, n := newTestDispatcher()
		boom := errors.New("boom")
		d.Register("op", Options{}, func(ctx context.Context, payload []byte) (interface{}, error) {
			return nil, boom
		})

		h := d.wrap("op", d.handlers["op"])
		if err := h(ctx, makeTask(t, "op", "job1", time.Now(), nil)); !errors.Is(err, boom) {
			t.Fatalf("expected the handler error, got %v", err)
		}

		statuses := n.statuses()
		if len(statuses) != 2 || statuses[1] != model.JobStatusFailed {
			t.Errorf("unexpected lifecycle %v", statuses)
		}
		if n.events[1].Error != "boom" {
			t.Errorf("expected the failure message, got %q", n.events[1].Error)
		}
	})
}

func TestRunNow(t *testing.T) {
	ctx := context.Background()

	t.Run("Delivers The Handler Result", func(t *testing.T) {
		d, _ := newTestDispatcher()
		d.Register("op", Options{}, func(ctx context.Context, payload []byte) (interface{}, error) {
			var in string
			if err := json.Unmarshal(payload, &in); err != nil {
				return nil, err
			}
			return in + " world", nil
		})

		result, err := d.RunNow(ctx, "op", "hello")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result != "hello world" {
			t.Errorf("unexpected result %v", result)
		}
	})

	t.Run("Cancellation Is Swallowed", func(t *testing.T) {
		d, _ := newTestDispatcher()
		d.Register("op", Options{}, func(ctx context.Context, payload []byte) (interface{}, error) {
			return nil, fmt.Errorf("request failed: %w", context.Canceled)
		})

		if _, err := d.RunNow(ctx, "op", nil); err != nil {
			t.Fatalf("a superseded synchronous run must not fail the caller, got %v", err)
		}
	})

	t.Run("Unknown Operation", func(t *testing.T) {
		d, _ := newTestDispatcher()
		if _, err := d.RunNow(ctx, "nope", nil); err == nil {
			t.Fatal("expected an error for an unregistered operation")
		}
	})
}
