package ui

import (
	"context"
	"sync"
)

// Poster schedules a function on the UI goroutine.
type Poster interface {
	Do(fn func())
}

// Loop is the work queue of the UI goroutine. Every mutation of the bus, the
// panels and the document goes through it, so the rest of the runtime can
// assume a single thread of execution.
//
// Functions run in the order they were posted.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
}

// NewLoop returns an idle loop. Functions posted before Run are kept.
func NewLoop() *Loop {
	return &Loop{signal: make(chan struct{}, 1)}
}

// Do posts fn to the loop. It never blocks and can be called from any goroutine,
// including the loop itself.
func (l *Loop) Do(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// DoSync posts fn and waits until it has run or ctx is done.
// It must not be called from the loop goroutine.
func (l *Loop) DoSync(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Do(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.signal:
		}
	}
}

// Pending returns the number of queued functions.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Inline is a Poster that runs functions immediately on the calling goroutine.
type Inline struct{}

func (Inline) Do(fn func()) { fn() }
