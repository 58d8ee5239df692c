package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DelayQueue runs callbacks after a delay. Pending entries are cancelled on
// shutdown rather than flushed early: a flushed send would defeat the
// response-delay cadence, and the triggering event will not be redelivered
// as processed, so dropping is the safe side.
type DelayQueue struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
	nextID int64
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDelayQueue creates an empty delay queue.
func NewDelayQueue() *DelayQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &DelayQueue{
		timers: make(map[int64]*time.Timer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule runs fn after the delay. Entries scheduled after shutdown are
// dropped.
func (q *DelayQueue) Schedule(delay time.Duration, fn func(ctx context.Context)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		log.Warn().Msg("delay queue closed, entry dropped")
		return
	}

	id := q.nextID
	q.nextID++
	q.wg.Add(1)

	q.timers[id] = time.AfterFunc(delay, func() {
		defer q.wg.Done()
		q.mu.Lock()
		delete(q.timers, id)
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}
		fn(q.ctx)
	})
}

// Len returns the number of pending entries.
func (q *DelayQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.timers)
}

// Shutdown cancels all pending entries and waits for in-flight callbacks.
func (q *DelayQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.cancel()
	cancelled := 0
	for id, t := range q.timers {
		if t.Stop() {
			q.wg.Done()
			cancelled++
		}
		delete(q.timers, id)
	}
	q.mu.Unlock()
	if cancelled > 0 {
		log.Info().Int("cancelled", cancelled).Msg("pending delayed sends cancelled")
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
