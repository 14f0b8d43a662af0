// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Delivery defaults.
const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 500 * time.Millisecond
	DefaultBackoffBase    = 100 * time.Millisecond
)

// ErrSinkPanic wraps a panic raised inside a Sink.
var ErrSinkPanic = errors.New("telemetry: sink panicked")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the default Sleeper.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Emitter queues payloads and delivers each one independently through a
// Sink with bounded retry. All methods are safe for concurrent use.
type Emitter struct {
	sink     Sink
	archive  *Archive
	attempts int
	timeout  time.Duration
	base     time.Duration
	jitter   float64
	sleep    Sleeper
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*Event
	order   []string
	closed  bool
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithArchive records outcomes in a instead of the shared archive.
// A nil archive disables recording.
func WithArchive(a *Archive) EmitterOption {
	return func(e *Emitter) { e.archive = a }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) EmitterOption {
	return func(e *Emitter) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithAttempts sets the attempt limit. Values below 1 are ignored.
func WithAttempts(n int) EmitterOption {
	return func(e *Emitter) {
		if n >= 1 {
			e.attempts = n
		}
	}
}

// WithAttemptTimeout bounds each Send call.
func WithAttemptTimeout(d time.Duration) EmitterOption {
	return func(e *Emitter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithBackoff sets the first retry delay and an optional jitter fraction.
func WithBackoff(base time.Duration, jitter float64) EmitterOption {
	return func(e *Emitter) {
		if base > 0 {
			e.base = base
		}
		if jitter >= 0 && jitter < 1 {
			e.jitter = jitter
		}
	}
}

// WithEmitterClock overrides the enqueue timestamp source.
func WithEmitterClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEmitter creates an emitter delivering to sink.
func NewEmitter(sink Sink, opts ...EmitterOption) *Emitter {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Emitter{
		sink:     sink,
		archive:  Shared(),
		attempts: DefaultMaxAttempts,
		timeout:  DefaultAttemptTimeout,
		base:     DefaultBackoffBase,
		sleep:    sleepContext,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]*Event),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnqueueAndTransmit queues p and starts delivering it in the background.
// It never blocks on the sink. Payloads submitted after Shutdown are dropped.
func (e *Emitter) EnqueueAndTransmit(p Payload) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		slogger().Debug("telemetry: emitter closed, event dropped", "event_id", p.EventID)
		return
	}
	if _, dup := e.pending[p.EventID]; dup {
		e.mu.Unlock()
		slogger().Debug("telemetry: event already queued", "event_id", p.EventID)
		return
	}
	ev := &Event{Payload: p, EnqueuedAt: e.now()}
	e.pending[p.EventID] = ev
	e.order = append(e.order, p.EventID)
	e.wg.Add(1)
	e.mu.Unlock()

	go e.transmit(ev)
}

func (e *Emitter) transmit(ev *Event) {
	defer e.wg.Done()
	id := ev.Payload.EventID
	b := newBackoff(e.base, 0, e.jitter)

	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		if e.ctx.Err() != nil {
			e.remove(id)
			return
		}
		err := e.send(ev.Payload)
		if err == nil {
			e.remove(id)
			e.record(ev.Payload, OutcomeDelivered, attempt)
			slogger().Debug("telemetry: event delivered",
				"event_id", id, "type", ev.Payload.EventType, "attempts", attempt)
			return
		}
		lastErr = err
		if attempt == e.attempts {
			break
		}
		e.mu.Lock()
		ev.Retries++
		e.mu.Unlock()
		if err := e.sleep(e.ctx, b.Next()); err != nil {
			e.remove(id)
			return
		}
	}

	e.remove(id)
	e.record(ev.Payload, OutcomeDropped, e.attempts)
	slogger().Warn("telemetry: event dropped after retries",
		"event_id", id, "type", ev.Payload.EventType, "attempts", e.attempts, "err", lastErr)
}

// send runs one attempt bounded by the attempt timeout, even when the sink
// ignores its context.
func (e *Emitter) send(p Payload) error {
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrSinkPanic, r)
			}
		}()
		done <- e.sink.Send(ctx, p)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telemetry: send: %w", ctx.Err())
	}
}

func (e *Emitter) remove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[id]; !ok {
		return
	}
	delete(e.pending, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

func (e *Emitter) record(p Payload, o Outcome, attempts int) {
	if e.archive == nil {
		return
	}
	e.archive.Add(Record{Payload: p, Outcome: o, Attempts: attempts, At: e.now()})
}

// PendingEvents returns a snapshot of queued events in enqueue order.
func (e *Emitter) PendingEvents() []Event {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.pending[id])
	}
	return out
}

// Shutdown cancels in-flight deliveries and clears the queue.
// Later calls are no-ops.
func (e *Emitter) Shutdown() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	n := len(e.order)
	clear(e.pending)
	e.order = nil
	e.mu.Unlock()

	e.cancel()
	if n > 0 {
		slogger().Debug("telemetry: shutdown discarded pending events", "count", n)
	}
}

// Wait blocks until every delivery goroutine has finished or ctx is done.
func (e *Emitter) Wait(ctx context.Context) error {
	if e == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
