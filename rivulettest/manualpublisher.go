package rivulettest

import (
	"slices"
	"sync"

	"github.com/gordian-engine/rivulet"
)

// ManualPublisher is a [rivulet.Publisher] driven directly by a test.
//
// Every subscription it creates records the demand requested through it
// and the number of times it was cancelled,
// so tests can assert on exactly what an operator asked of its upstream.
type ManualPublisher[T any] struct {
	mu   sync.Mutex
	subs []*ManualSubscription[T]
}

// NewManualPublisher returns a ManualPublisher with no subscribers.
func NewManualPublisher[T any]() *ManualPublisher[T] {
	return new(ManualPublisher[T])
}

func (p *ManualPublisher[T]) Subscribe(s rivulet.Subscriber[T]) {
	ms := &ManualSubscription[T]{downstream: s}

	p.mu.Lock()
	p.subs = append(p.subs, ms)
	p.mu.Unlock()

	s.ReceiveSubscription(ms)
}

// Subscriptions returns every subscription created so far,
// including cancelled and completed ones.
func (p *ManualPublisher[T]) Subscriptions() []*ManualSubscription[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.subs)
}

// Send delivers v to every live subscription that has outstanding demand,
// and returns the number of subscribers that received it.
func (p *ManualPublisher[T]) Send(v T) int {
	n := 0
	for _, s := range p.Subscriptions() {
		if s.send(v) {
			n++
		}
	}
	return n
}

// Finish completes every live subscription successfully.
func (p *ManualPublisher[T]) Finish() {
	p.Complete(rivulet.Finished())
}

// Fail completes every live subscription with err.
func (p *ManualPublisher[T]) Fail(err error) {
	p.Complete(rivulet.Failed(err))
}

// Complete delivers c to every live subscription.
func (p *ManualPublisher[T]) Complete(c rivulet.Completion) {
	for _, s := range p.Subscriptions() {
		s.complete(c)
	}
}

// ManualSubscription is a subscription created by a [ManualPublisher].
type ManualSubscription[T any] struct {
	mu         sync.Mutex
	downstream rivulet.Subscriber[T] // Nil once terminated.
	demand     rivulet.Demand
	requests   []rivulet.Demand
	cancels    int
}

func (s *ManualSubscription[T]) Request(d rivulet.Demand) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, d)
	if s.downstream != nil {
		s.demand = s.demand.Add(d)
	}
}

func (s *ManualSubscription[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancels++
	s.downstream = nil
}

// Requests returns every demand passed to Request, in call order.
func (s *ManualSubscription[T]) Requests() []rivulet.Demand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// TotalRequested returns the sum of every demand passed to Request.
func (s *ManualSubscription[T]) TotalRequested() rivulet.Demand {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total rivulet.Demand
	for _, d := range s.requests {
		total = total.Add(d)
	}
	return total
}

// Demand returns the currently outstanding demand.
func (s *ManualSubscription[T]) Demand() rivulet.Demand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demand
}

// Cancels returns the number of Cancel calls.
func (s *ManualSubscription[T]) Cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancels
}

// Live reports whether the subscription has been neither cancelled nor completed.
func (s *ManualSubscription[T]) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downstream != nil
}

func (s *ManualSubscription[T]) send(v T) bool {
	s.mu.Lock()
	ds := s.downstream
	if ds == nil || s.demand.IsZero() {
		s.mu.Unlock()
		return false
	}
	s.demand = s.demand.Decrement()
	s.mu.Unlock()

	more := ds.ReceiveValue(v)

	s.mu.Lock()
	if s.downstream != nil {
		s.demand = s.demand.Add(more)
	}
	s.mu.Unlock()

	return true
}

func (s *ManualSubscription[T]) complete(c rivulet.Completion) {
	s.mu.Lock()
	ds := s.downstream
	s.downstream = nil
	s.mu.Unlock()

	if ds != nil {
		ds.ReceiveCompletion(c)
	}
}
