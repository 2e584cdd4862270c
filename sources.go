package rivulet

import "sync"

// FromSlice returns a cold publisher that delivers vals in order
// to each subscriber, respecting demand, and then finishes.
//
// Requests made from within ReceiveValue are honored iteratively
// instead of recursively, so long slices do not grow the stack.
func FromSlice[T any](vals ...T) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		sub := &sliceSubscription[T]{
			vals:       vals,
			downstream: s,
		}
		s.ReceiveSubscription(sub)

		// An empty slice finishes without waiting for demand.
		sub.drain()
	})
}

// Empty returns a publisher that finishes immediately.
func Empty[T any]() Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		s.ReceiveSubscription(NopSubscription{})
		s.ReceiveCompletion(Finished())
	})
}

// Fail returns a publisher that fails with err immediately.
func Fail[T any](err error) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		s.ReceiveSubscription(NopSubscription{})
		s.ReceiveCompletion(Failed(err))
	})
}

type sliceSubscription[T any] struct {
	mu sync.Mutex

	vals       []T
	downstream Subscriber[T] // Nil once completed or cancelled.
	demand     Demand

	// Set while one goroutine owns delivery.
	// Reentrant or concurrent requests only add demand.
	draining bool
}

func (s *sliceSubscription[T]) Request(d Demand) {
	if d.IsZero() {
		return
	}

	s.mu.Lock()
	if s.downstream == nil {
		s.mu.Unlock()
		return
	}
	s.demand = s.demand.Add(d)
	s.mu.Unlock()

	s.drain()
}

func (s *sliceSubscription[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.downstream = nil
	s.vals = nil
}

func (s *sliceSubscription[T]) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for {
		ds := s.downstream
		if ds == nil {
			break
		}

		if len(s.vals) == 0 {
			s.downstream = nil
			s.draining = false
			s.mu.Unlock()

			ds.ReceiveCompletion(Finished())
			return
		}

		if s.demand.IsZero() {
			break
		}

		v := s.vals[0]
		s.vals = s.vals[1:]
		s.demand = s.demand.Decrement()
		s.mu.Unlock()

		more := ds.ReceiveValue(v)

		s.mu.Lock()
		s.demand = s.demand.Add(more)
	}

	s.draining = false
	s.mu.Unlock()
}
