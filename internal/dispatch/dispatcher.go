// Package dispatch wraps the durable work queue with the scheduling
// discipline the playback operations need: named operations, a
// caller-supplied dedup key, at-most-one-running-instance-per-key with
// latest-wins supersession, queued-job expiry and run timeouts.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/driftblend/api/internal/model"
)

// Task type names for the four playback operations.
const (
	TaskTypePlay  = "playback:play"
	TaskTypeFade  = "playback:fade"
	TaskTypeBlend = "blend:generate"
	TaskTypeRadio = "radio:play"
)

// QueuePlayback is the queue all playback operations run on.
const QueuePlayback = "playback"

// markerTTL bounds how long a supersede marker outlives its job.
const markerTTL = 24 * time.Hour

// Options configure one registered operation.
type Options struct {
	Unique      bool          // enforce a single in-flight instance per dedup key
	ExpireAfter time.Duration // discard unstarted jobs older than this; 0 = never
	Timeout     time.Duration // max run duration; 0 = unbounded
}

// Handler runs one job. The payload is the operation's own argument struct,
// marshalled by Enqueue. The result is only delivered on the synchronous
// RunNow path; queued runs discard it.
type Handler func(ctx context.Context, payload []byte) (interface{}, error)

// Notifier observes job lifecycle transitions.
type Notifier interface {
	JobEvent(event model.JobEvent)
}

type registration struct {
	opts    Options
	handler Handler
}

type runningJob struct {
	jobID  string
	cancel context.CancelFunc
}

// envelope wraps every task payload with the metadata the wrapper needs.
type envelope struct {
	JobID      string          `json:"jobId"`
	DedupKey   string          `json:"dedupKey"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Dispatcher is the queue substrate wrapper. One instance is shared between
// the enqueueing services and the worker server, so a new enqueue can cancel
// the running instance it supersedes directly; the inspector covers runs
// owned by other processes.
type Dispatcher struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	rdb       *redis.Client
	logger    *log.Logger
	notifier  Notifier

	mu       sync.Mutex
	handlers map[string]registration
	running  map[string]runningJob // keyed by operation + dedup key
}

func New(client *asynq.Client, inspector *asynq.Inspector, rdb *redis.Client, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		client:    client,
		inspector: inspector,
		rdb:       rdb,
		logger:    logger,
		handlers:  make(map[string]registration),
		running:   make(map[string]runningJob),
	}
}

// SetNotifier attaches a lifecycle observer (the websocket hub).
func (d *Dispatcher) SetNotifier(n Notifier) {
	d.notifier = n
}

// Register binds an operation name to its handler and scheduling options.
func (d *Dispatcher) Register(operation string, opts Options, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[operation] = registration{opts: opts, handler: h}
}

// Mux builds the asynq handler mux for every registered operation.
func (d *Dispatcher) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	d.mu.Lock()
	defer d.mu.Unlock()
	for operation, reg := range d.handlers {
		mux.HandleFunc(operation, d.wrap(operation, reg))
	}
	return mux
}

func runKey(operation, dedupKey string) string {
	return operation + ":" + dedupKey
}

func markerKey(operation, dedupKey string) string {
	return fmt.Sprintf("dispatch:current:%s:%s", operation, dedupKey)
}

// Enqueue queues one job. For a unique operation the previous job with the
// same dedup key is superseded: a queued instance is dropped before it
// starts, a running instance is cancelled.
func (d *Dispatcher) Enqueue(ctx context.Context, operation, dedupKey string, payload interface{}) (string, error) {
	d.mu.Lock()
	reg, ok := d.handlers[operation]
	d.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("dispatch: unknown operation %q", operation)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("dispatch: encoding payload: %w", err)
	}
	env := envelope{
		JobID:      uuid.New().String(),
		DedupKey:   dedupKey,
		EnqueuedAt: time.Now(),
		Payload:    raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("dispatch: encoding envelope: %w", err)
	}

	if reg.opts.Unique {
		if err := d.supersede(ctx, operation, dedupKey, env.JobID); err != nil {
			return "", err
		}
	}

	taskOpts := []asynq.Option{
		asynq.TaskID(env.JobID),
		asynq.Queue(QueuePlayback),
		asynq.MaxRetry(0),
		asynq.Retention(time.Hour),
	}
	if reg.opts.Timeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(reg.opts.Timeout))
	}

	if _, err := d.client.EnqueueContext(ctx, asynq.NewTask(operation, data), taskOpts...); err != nil {
		return "", fmt.Errorf("dispatch: enqueueing %s: %w", operation, err)
	}

	d.notify(model.JobEvent{
		JobID:     env.JobID,
		Operation: operation,
		Status:    model.JobStatusQueued,
		Timestamp: time.Now(),
	})
	return env.JobID, nil
}

// supersede makes jobID the only instance that may run for the key: the
// marker redirect drops a queued predecessor, the cancel stops a running one.
func (d *Dispatcher) supersede(ctx context.Context, operation, dedupKey, jobID string) error {
	prevID, err := d.rdb.GetSet(ctx, markerKey(operation, dedupKey), jobID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("dispatch: updating supersede marker: %w", err)
	}
	d.rdb.Expire(ctx, markerKey(operation, dedupKey), markerTTL)

	if prevID == "" || prevID == jobID {
		return nil
	}

	d.mu.Lock()
	run, active := d.running[runKey(operation, dedupKey)]
	d.mu.Unlock()
	if active && run.jobID == prevID {
		d.logger.Debug("cancelling superseded job", "operation", operation, "job", prevID)
		run.cancel()
	}
	// Covers a run owned by another worker process. Cancelling an id that
	// is not processing is a no-op.
	if err := d.inspector.CancelProcessing(prevID); err != nil {
		d.logger.Debug("inspector cancel", "job", prevID, "err", err)
	}
	return nil
}

// RunNow invokes the operation synchronously, bypassing the queue. Used by
// the run-and-await-result path.
func (d *Dispatcher) RunNow(ctx context.Context, operation string, payload interface{}) (interface{}, error) {
	d.mu.Lock()
	reg, ok := d.handlers[operation]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dispatch: unknown operation %q", operation)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch: encoding payload: %w", err)
	}
	result, err := reg.handler(ctx, raw)
	if err != nil && errors.Is(err, context.Canceled) {
		// Superseded mid-run, not a caller-visible fault.
		d.logger.Debug("synchronous run cancelled", "operation", operation)
		return result, nil
	}
	return result, err
}

// wrap builds the asynq handler for one operation: drop superseded and
// expired jobs, register the run for cancellation, swallow supersession
// cancellations, report lifecycle events.
func (d *Dispatcher) wrap(operation string, reg registration) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var env envelope
		if err := json.Unmarshal(t.Payload(), &env); err != nil {
			return fmt.Errorf("dispatch: decoding envelope: %w", err)
		}

		if reg.opts.Unique {
			current, err := d.rdb.Get(ctx, markerKey(operation, env.DedupKey)).Result()
			if err == nil && current != env.JobID {
				d.logger.Debug("dropping superseded job", "operation", operation, "job", env.JobID)
				d.notify(model.JobEvent{JobID: env.JobID, Operation: operation, Status: model.JobStatusCancelled, Timestamp: time.Now()})
				return nil
			}
		}
		if reg.opts.ExpireAfter > 0 && time.Since(env.EnqueuedAt) > reg.opts.ExpireAfter {
			d.logger.Debug("dropping expired job", "operation", operation, "job", env.JobID, "age", time.Since(env.EnqueuedAt))
			d.notify(model.JobEvent{JobID: env.JobID, Operation: operation, Status: model.JobStatusExpired, Timestamp: time.Now()})
			return nil
		}

		runCtx := ctx
		if reg.opts.Unique {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithCancel(ctx)
			key := runKey(operation, env.DedupKey)
			d.mu.Lock()
			d.running[key] = runningJob{jobID: env.JobID, cancel: cancel}
			d.mu.Unlock()
			defer func() {
				cancel()
				d.mu.Lock()
				if run, ok := d.running[key]; ok && run.jobID == env.JobID {
					delete(d.running, key)
				}
				d.mu.Unlock()
			}()
		}

		d.notify(model.JobEvent{JobID: env.JobID, Operation: operation, Status: model.JobStatusRunning, Timestamp: time.Now()})

		_, err := reg.handler(runCtx, env.Payload)
		switch {
		case err == nil:
			d.notify(model.JobEvent{JobID: env.JobID, Operation: operation, Status: model.JobStatusSucceeded, Timestamp: time.Now()})
			return nil
		case errors.Is(err, context.Canceled):
			// Supersession by a newer request for the same user, not a fault.
			d.logger.Debug("job cancelled", "operation", operation, "job", env.JobID)
			d.notify(model.JobEvent{JobID: env.JobID, Operation: operation, Status: model.JobStatusCancelled, Timestamp: time.Now()})
			return nil
		default:
			d.logger.Error("job failed", "operation", operation, "job", env.JobID, "err", err)
			d.notify(model.JobEvent{JobID: env.JobID, Operation: operation, Status: model.JobStatusFailed, Error: err.Error(), Timestamp: time.Now()})
			return err
		}
	}
}

func (d *Dispatcher) notify(event model.JobEvent) {
	if d.notifier != nil {
		d.notifier.JobEvent(event)
	}
}
