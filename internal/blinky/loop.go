package blinky

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/srg/blinky/internal/groutine"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("session loop stopped")

type loopOp struct {
	fn   func(*Session)
	done chan struct{}
}

// Loop owns a Session on a single goroutine. Transport events and caller
// operations are interleaved on that goroutine, which is the single-writer
// guarantee Session relies on.
type Loop struct {
	session *Session
	ops     chan loopOp
	stopped chan struct{}
	logger  *logrus.Logger
}

// NewLoop wraps s. The loop does nothing until Run or Start is called.
func NewLoop(s *Session, logger *logrus.Logger) *Loop {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loop{
		session: s,
		ops:     make(chan loopOp),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Run processes events and operations until ctx is done or events is closed.
// Returns ctx.Err() on cancellation and nil when the event stream ends.
func (l *Loop) Run(ctx context.Context, events <-chan Event) error {
	defer close(l.stopped)

	l.logger.WithField("peripheral_id", l.session.ID()).Debug("Session loop started")
	defer l.logger.WithField("peripheral_id", l.session.ID()).Debug("Session loop exiting")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.session.Handle(ev)
		case op := <-l.ops:
			op.fn(l.session)
			close(op.done)
		}
	}
}

// Start runs the loop on a named goroutine. The returned channel receives the
// result of Run.
func (l *Loop) Start(ctx context.Context, events <-chan Event) <-chan error {
	result := make(chan error, 1)
	groutine.Go(ctx, "blinky-session-loop", func(ctx context.Context) {
		result <- l.Run(ctx, events)
	})
	return result
}

// Do runs fn on the loop goroutine and waits for it to return.
// Do must not be called from an Observer callback; those already run on the
// loop goroutine and may use the Session directly.
func (l *Loop) Do(ctx context.Context, fn func(*Session)) error {
	op := loopOp{fn: fn, done: make(chan struct{})}
	select {
	case l.ops <- op:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-op.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped is closed when Run returns.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stopped
}
