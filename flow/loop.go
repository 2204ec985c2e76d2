// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package flow

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/types"
)

// Loop is the single logical worker owning a graph's reactions: tasks run
// one at a time, in submission order, to completion. Correctness of the
// port and slot state rests on this serialization rather than on locks.
type Loop struct {
	tasks  chan task
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

type task struct {
	fn   func() error
	errc chan error
}

// NewLoop starts the worker. Close must be called to release it.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		tasks:  make(chan task, 64),
		logger: logger.With(zap.String("component", "loop")),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for t := range l.tasks {
		err := t.fn()
		if t.errc != nil {
			t.errc <- err
		} else if err != nil {
			l.logger.Error("task failed", zap.Error(err))
		}
	}
}

// Do runs fn on the worker and waits for it to complete, returning its
// error. The context bounds only the wait; a task already started runs to
// completion regardless.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if err := l.submit(task{fn: fn, errc: errc}); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues fn without waiting. Failures are logged.
func (l *Loop) Submit(fn func() error) error {
	return l.submit(task{fn: fn})
}

func (l *Loop) submit(t task) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.Errorf(types.ErrInternalError, "loop is closed")
	}
	l.tasks <- t
	return nil
}

// Close stops accepting tasks and waits for queued work to drain.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.tasks)
	l.mu.Unlock()
	<-l.done
}
