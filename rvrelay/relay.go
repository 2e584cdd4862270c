package rvrelay

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rvsink"
)

// Relay is a multicast [rivulet.Publisher] of values passed to [*Relay.Accept].
//
// Values are delivered live to the current subscribers that have demand.
// There is no buffering or replay:
// a subscriber without demand misses the value,
// and a subscriber that joins later never sees it.
//
// A Relay never fails. Its subscribers see a successful completion
// only when the relay is disposed, and then exactly once.
//
// A Relay is also a [rivulet.Subscriber], so it can sit in the middle of
// a pipeline: subscribed to an upstream, it requests unlimited demand and
// accepts every upstream value. Upstream completion is not passed on,
// and an upstream failure is logged and otherwise absorbed.
//
// Accept and Dispose serialize with each other,
// so they must not be called from within a subscriber callback
// of the same relay.
type Relay[T any] struct {
	log *slog.Logger

	b *broadcaster[T]

	// Held for the duration of a fan-out or a disposal,
	// so that no subscriber sees a value and a completion concurrently.
	deliverMu sync.Mutex

	mu       sync.Mutex
	subs     []*Subscription[T]
	upstream rivulet.Subscription
	disposed bool
}

// New returns a Relay with no subscribers.
func New[T any](log *slog.Logger) *Relay[T] {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Relay[T]{
		log: log,
		b:   newBroadcaster[T](),
	}
}

// Accept delivers v to every current subscriber with outstanding demand.
// Accept after Dispose is a no-op.
func (r *Relay[T]) Accept(v T) {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.mu.Lock()
	disposed := r.disposed
	r.mu.Unlock()

	if disposed {
		return
	}

	r.b.send(v)
}

// Subscribe attaches s to the relay.
// Subscribing to a disposed relay finishes s immediately.
func (r *Relay[T]) Subscribe(s rivulet.Subscriber[T]) {
	sub := &Subscription[T]{
		sink: rvsink.New(s, rvsink.Config[T, T]{
			TransformOutput:    rvsink.Identity[T],
			SuppressCompletion: true,
		}),
	}

	// Demand requested here is held by the sink until attach.
	s.ReceiveSubscription(sub)

	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		sub.finish()
		return
	}

	if len(r.subs) > 0 && len(r.subs) == cap(r.subs) {
		// Drop cancelled entries before the registry grows.
		r.subs = slices.DeleteFunc(r.subs, (*Subscription[T]).inert)
	}
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	// If Dispose ran in between, the sink is already released
	// and cancels the conduit as soon as it arrives.
	r.b.attach(sub.sink)
}

// Dispose finishes every live subscriber exactly once,
// cancels the upstream subscription if there is one,
// and releases the relay's storage.
//
// Dispose is idempotent.
func (r *Relay[T]) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	subs := r.subs
	r.subs = nil
	up := r.upstream
	r.upstream = nil
	r.mu.Unlock()

	// Cancel outside deliverMu,
	// in case the upstream waits on an in-flight Accept.
	if up != nil {
		up.Cancel()
	}

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.b.reset()

	n := 0
	for _, sub := range subs {
		if sub.finish() {
			n++
		}
	}

	r.log.Debug("Relay disposed", "subscribers", n)
}

func (r *Relay[T]) ReceiveSubscription(s rivulet.Subscription) {
	r.mu.Lock()
	if r.disposed || r.upstream != nil {
		r.mu.Unlock()
		s.Cancel()
		return
	}
	r.upstream = s
	r.mu.Unlock()

	s.Request(rivulet.Unlimited)
}

func (r *Relay[T]) ReceiveValue(v T) rivulet.Demand {
	r.Accept(v)
	return rivulet.None
}

func (r *Relay[T]) ReceiveCompletion(c rivulet.Completion) {
	r.mu.Lock()
	r.upstream = nil
	r.mu.Unlock()

	if !c.IsFinished() {
		r.log.Warn("Relay upstream failed; subscribers are unaffected", "err", c.Err)
		return
	}
	r.log.Debug("Relay upstream finished")
}
