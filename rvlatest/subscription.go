package rvlatest

import (
	"log/slog"
	"sync"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rvsink"
)

// phase is the state of a subscription.
// Exactly one of priming, active, or closed.
type phase interface {
	isPhase()
}

// priming is the phase before the secondary's first value.
// Downstream demand accumulates in pending.
type priming struct {
	pending rivulet.Demand
}

// active is the phase after the secondary's first value.
// Downstream demand goes straight to the primary sink.
type active[P, O any] struct {
	sink *rvsink.Sink[P, O]
}

// closed is terminal: cancelled, or a completion was forwarded.
type closed struct{}

func (priming) isPhase()      {}
func (active[P, O]) isPhase() {}
func (closed) isPhase()       {}

// subscription is the [rivulet.Subscription] handed to a downstream subscriber.
type subscription[P, S, O any] struct {
	log *slog.Logger

	primary   rivulet.Publisher[P]
	secondary rivulet.Publisher[S]
	combine   func(P, S) O

	cell *latestCell[S]

	mu           sync.Mutex
	phase        phase
	downstream   rivulet.Subscriber[O] // Nil once closed.
	secondarySub rivulet.Subscription
	observer     *secondaryObserver[P, S, O]
}

func newSubscription[P, S, O any](
	log *slog.Logger, cfg Config[P, S, O], downstream rivulet.Subscriber[O],
) *subscription[P, S, O] {
	return &subscription[P, S, O]{
		log: log,

		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		combine:   cfg.Combine,

		cell: new(latestCell[S]),

		phase:      priming{},
		downstream: downstream,
	}
}

// start subscribes to the secondary publisher.
func (s *subscription[P, S, O]) start() {
	s.mu.Lock()
	if _, ok := s.phase.(closed); ok {
		// Cancelled from within ReceiveSubscription.
		s.mu.Unlock()
		return
	}
	o := newSecondaryObserver(s)
	s.observer = o
	s.mu.Unlock()

	s.secondary.Subscribe(o)
}

func (s *subscription[P, S, O]) Request(d rivulet.Demand) {
	if d.IsZero() {
		return
	}

	s.mu.Lock()
	switch ph := s.phase.(type) {
	case priming:
		ph.pending = ph.pending.Add(d)
		s.phase = ph
		s.mu.Unlock()

	case active[P, O]:
		s.mu.Unlock()
		ph.sink.Demand(d)

	default:
		s.mu.Unlock()
	}
}

func (s *subscription[P, S, O]) Cancel() {
	s.mu.Lock()
	if _, ok := s.phase.(closed); ok {
		s.mu.Unlock()
		return
	}

	prev := s.phase
	sec := s.secondarySub
	s.close()
	s.mu.Unlock()

	if a, ok := prev.(active[P, O]); ok {
		a.sink.Cancel()
	}
	if sec != nil {
		sec.Cancel()
	}
}

// close must be called with s.mu held.
func (s *subscription[P, S, O]) close() {
	s.phase = closed{}
	s.downstream = nil
	s.secondarySub = nil

	if s.observer != nil {
		s.observer.detach()
		s.observer = nil
	}
}

// finish moves s to the closed phase and forwards c downstream,
// unless s was already closed.
// If cancelSecondary is set, the secondary subscription is cancelled too.
func (s *subscription[P, S, O]) finish(c rivulet.Completion, cancelSecondary bool) {
	s.mu.Lock()
	if _, ok := s.phase.(closed); ok {
		s.mu.Unlock()
		return
	}

	prev := s.phase
	ds := s.downstream
	sec := s.secondarySub
	s.close()
	s.mu.Unlock()

	if a, ok := prev.(active[P, O]); ok {
		// No-op if the primary is the side that completed.
		a.sink.Cancel()
	}
	if cancelSecondary && sec != nil {
		sec.Cancel()
	}

	ds.ReceiveCompletion(c)
}

func (s *subscription[P, S, O]) receiveSecondarySubscription(sub rivulet.Subscription) {
	s.mu.Lock()
	_, isClosed := s.phase.(closed)
	if isClosed || s.secondarySub != nil {
		s.mu.Unlock()
		sub.Cancel()
		return
	}
	s.secondarySub = sub
	s.mu.Unlock()

	// Only the latest secondary value matters,
	// so the secondary is drained regardless of downstream demand.
	sub.Request(rivulet.Unlimited)
}

func (s *subscription[P, S, O]) receiveSecondaryValue(v S) {
	// Store before any transition,
	// so the primary never observes an active phase with an empty cell.
	s.cell.store(v)

	s.mu.Lock()
	ph, ok := s.phase.(priming)
	if !ok {
		s.mu.Unlock()
		return
	}

	sink := rvsink.New(primaryDownstream[P, S, O]{s: s}, rvsink.Config[P, O]{
		TransformOutput: s.combineLatest,
	})
	s.phase = active[P, O]{sink: sink}
	s.mu.Unlock()

	s.log.Debug(
		"Secondary produced first value; subscribing to primary",
		"demand", ph.pending,
	)

	s.primary.Subscribe(sink)
	sink.Demand(ph.pending)
}

func (s *subscription[P, S, O]) receiveSecondaryCompletion(c rivulet.Completion) {
	s.mu.Lock()
	ph := s.phase
	s.mu.Unlock()

	switch ph.(type) {
	case priming:
		s.log.Debug(
			"Secondary completed before producing a value",
			"err", c.Err,
		)
		s.finish(c, false)

	case active[P, O]:
		if c.IsFinished() {
			// Keep using the latest value.
			s.mu.Lock()
			s.secondarySub = nil
			s.mu.Unlock()
			return
		}
		s.finish(c, false)
	}
}

func (s *subscription[P, S, O]) combineLatest(p P) (O, bool) {
	sv, ok := s.cell.load()
	if !ok {
		var zero O
		return zero, false
	}
	return s.combine(p, sv), true
}

// primaryDownstream receives combined values from the primary sink
// and routes them to the subscription's downstream.
type primaryDownstream[P, S, O any] struct {
	s *subscription[P, S, O]
}

// ReceiveSubscription is never called; the sink keeps the primary subscription.
func (primaryDownstream[P, S, O]) ReceiveSubscription(rivulet.Subscription) {}

func (d primaryDownstream[P, S, O]) ReceiveValue(v O) rivulet.Demand {
	d.s.mu.Lock()
	ds := d.s.downstream
	d.s.mu.Unlock()

	if ds == nil {
		return rivulet.None
	}
	return ds.ReceiveValue(v)
}

func (d primaryDownstream[P, S, O]) ReceiveCompletion(c rivulet.Completion) {
	d.s.finish(c, true)
}
