// Package rvsink contains the bridging sink shared by the rivulet operators.
//
// A [Sink] subscribes to one upstream publisher on behalf of one downstream
// subscriber. It projects each upstream value into the downstream type
// (or drops it), buffers demand requested before the upstream subscription
// exists, and optionally holds back upstream completion.
package rvsink

import (
	"sync"

	"github.com/gordian-engine/rivulet"
)

// Config is the configuration for a [Sink].
type Config[In, Out any] struct {
	// TransformOutput projects an upstream value into a downstream value.
	// Returning false drops the value;
	// the sink then asks upstream for one replacement value
	// so that downstream demand is unaffected.
	// Required.
	TransformOutput func(In) (Out, bool)

	// TransformFailure maps an upstream failure before it is forwarded.
	// If nil, failures are forwarded unchanged.
	TransformFailure func(error) error

	// When set, upstream completion is not forwarded
	// until [*Sink.ForwardCompletion] is called.
	SuppressCompletion bool
}

// Sink bridges an upstream subscription to a downstream subscriber.
//
// Sink implements [rivulet.Subscriber] for the upstream side.
// The owner drives the downstream side through [*Sink.Demand]
// and [*Sink.Cancel].
//
// Once the sink forwards a completion or is cancelled, it is released:
// it drops its references to both sides and ignores every further call.
type Sink[In, Out any] struct {
	transformOutput  func(In) (Out, bool)
	transformFailure func(error) error

	mu sync.Mutex

	downstream rivulet.Subscriber[Out] // Nil once released.
	upstream   rivulet.Subscription

	// Demand requested before the upstream subscription arrived.
	pending rivulet.Demand

	suppressCompletion bool
}

// New returns a Sink delivering to downstream.
// The sink does nothing until it is passed to a publisher's Subscribe method.
func New[In, Out any](downstream rivulet.Subscriber[Out], cfg Config[In, Out]) *Sink[In, Out] {
	if cfg.TransformOutput == nil {
		panic("BUG: rvsink.Config.TransformOutput must not be nil")
	}

	return &Sink[In, Out]{
		transformOutput:  cfg.TransformOutput,
		transformFailure: cfg.TransformFailure,

		downstream: downstream,

		suppressCompletion: cfg.SuppressCompletion,
	}
}

// Identity is a TransformOutput function that keeps every value.
func Identity[T any](v T) (T, bool) {
	return v, true
}

func (s *Sink[In, Out]) ReceiveSubscription(sub rivulet.Subscription) {
	s.mu.Lock()
	if s.downstream == nil || s.upstream != nil {
		// Released, or a second subscription; neither may deliver.
		s.mu.Unlock()
		sub.Cancel()
		return
	}

	s.upstream = sub
	d := s.pending
	s.pending = rivulet.None
	s.mu.Unlock()

	if !d.IsZero() {
		sub.Request(d)
	}
}

func (s *Sink[In, Out]) ReceiveValue(v In) rivulet.Demand {
	s.mu.Lock()
	ds := s.downstream
	s.mu.Unlock()

	if ds == nil {
		return rivulet.None
	}

	out, ok := s.transformOutput(v)
	if !ok {
		return rivulet.Max(1)
	}

	return ds.ReceiveValue(out)
}

func (s *Sink[In, Out]) ReceiveCompletion(c rivulet.Completion) {
	s.mu.Lock()
	if s.downstream == nil || s.suppressCompletion {
		s.mu.Unlock()
		return
	}

	ds := s.downstream
	s.release()
	s.mu.Unlock()

	if c.Err != nil && s.transformFailure != nil {
		c = rivulet.Failed(s.transformFailure(c.Err))
	}

	ds.ReceiveCompletion(c)
}

// Demand adds d to the demand communicated upstream.
// If the upstream subscription has not arrived yet,
// d is held and forwarded as part of a single request once it does.
func (s *Sink[In, Out]) Demand(d rivulet.Demand) {
	if d.IsZero() {
		return
	}

	s.mu.Lock()
	if s.downstream == nil {
		s.mu.Unlock()
		return
	}

	up := s.upstream
	if up == nil {
		s.pending = s.pending.Add(d)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	up.Request(d)
}

// Cancel cancels the upstream subscription, if any, and releases the sink.
// Cancel is idempotent.
func (s *Sink[In, Out]) Cancel() {
	s.mu.Lock()
	if s.downstream == nil {
		s.mu.Unlock()
		return
	}

	up := s.upstream
	s.release()
	s.mu.Unlock()

	if up != nil {
		up.Cancel()
	}
}

// ForwardCompletion allows upstream completion to reach downstream.
// It does not replay a completion that was suppressed earlier;
// the owner is expected to deliver one through ReceiveCompletion.
func (s *Sink[In, Out]) ForwardCompletion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suppressCompletion = false
}

// ForceCompletion delivers c downstream and releases the sink,
// regardless of SuppressCompletion.
// The upstream subscription, if any, is not cancelled.
//
// ForceCompletion reports whether it delivered c.
// It returns false if the sink was already released,
// including by a concurrent Cancel or completion.
func (s *Sink[In, Out]) ForceCompletion(c rivulet.Completion) bool {
	s.mu.Lock()
	ds := s.downstream
	if ds == nil {
		s.mu.Unlock()
		return false
	}

	s.release()
	s.mu.Unlock()

	if c.Err != nil && s.transformFailure != nil {
		c = rivulet.Failed(s.transformFailure(c.Err))
	}

	ds.ReceiveCompletion(c)
	return true
}

// Released reports whether the sink has completed or been cancelled.
func (s *Sink[In, Out]) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.downstream == nil
}

// release must be called with s.mu held.
func (s *Sink[In, Out]) release() {
	s.downstream = nil
	s.upstream = nil
	s.pending = rivulet.None
}
