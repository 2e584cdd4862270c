package rvpubsub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gordian-engine/rivulet"
)

// Publisher is a [rivulet.Publisher] over a [Stream].
//
// Every subscriber starts reading at the node the Publisher was created with,
// in its own goroutine, and only advances while it has demand.
// Reaching the terminal node finishes the subscriber successfully,
// even without outstanding demand.
// When the Publisher's context is cancelled,
// every remaining subscriber finishes successfully as well.
type Publisher[T any] struct {
	ctx  context.Context
	log  *slog.Logger
	head *Stream[T]
}

// NewPublisher returns a Publisher reading from head.
// The context bounds the lifetime of every subscriber goroutine.
//
// The Publisher retains head for as long as it is reachable,
// and with it every node published after head.
// For long-lived streams, create Publishers from a recent node
// such as [*Writer.Tail], and drop them once no more subscribers are expected.
func NewPublisher[T any](ctx context.Context, log *slog.Logger, head *Stream[T]) *Publisher[T] {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Publisher[T]{
		ctx:  ctx,
		log:  log,
		head: head,
	}
}

func (p *Publisher[T]) Subscribe(s rivulet.Subscriber[T]) {
	sub := &subscription[T]{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}

	s.ReceiveSubscription(sub)

	go sub.run(p.ctx, p.log, p.head, s)
}

type subscription[T any] struct {
	mu     sync.Mutex
	demand rivulet.Demand

	// Signaled when demand increases from the subscriber side.
	wake chan struct{}

	quit       chan struct{}
	cancelOnce sync.Once
}

func (s *subscription[T]) Request(d rivulet.Demand) {
	if d.IsZero() {
		return
	}

	s.mu.Lock()
	s.demand = s.demand.Add(d)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
		// Already signaled.
	}
}

func (s *subscription[T]) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.quit)
	})
}

// take consumes one unit of demand, reporting whether any was available.
func (s *subscription[T]) take() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.demand.IsZero() {
		return false
	}
	s.demand = s.demand.Decrement()
	return true
}

func (s *subscription[T]) add(d rivulet.Demand) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.demand = s.demand.Add(d)
}

// run is the delivery loop for one subscriber.
// It is the only goroutine calling into ds after ReceiveSubscription.
func (s *subscription[T]) run(
	ctx context.Context, log *slog.Logger, node *Stream[T], ds rivulet.Subscriber[T],
) {
	for {
		select {
		case <-ctx.Done():
			s.finish(log, ds, "cause", context.Cause(ctx))
			return
		case <-s.quit:
			return
		case <-node.Ready:
		}

		if node.Closed {
			s.finish(log, ds, "cause", "stream closed")
			return
		}

		for !s.take() {
			select {
			case <-ctx.Done():
				s.finish(log, ds, "cause", context.Cause(ctx))
				return
			case <-s.quit:
				return
			case <-s.wake:
			}
		}

		s.add(ds.ReceiveValue(node.Val))
		node = node.Next
	}
}

func (s *subscription[T]) finish(log *slog.Logger, ds rivulet.Subscriber[T], logArgs ...any) {
	select {
	case <-s.quit:
		// Cancelled subscribers get no completion.
		return
	default:
	}

	log.Debug("Stream publisher subscriber finishing", logArgs...)
	ds.ReceiveCompletion(rivulet.Finished())
}
