package rvrelay

import (
	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rvsink"
)

// Subscription is the [rivulet.Subscription] handed to each relay subscriber.
type Subscription[T any] struct {
	sink *rvsink.Sink[T, T]
}

func (s *Subscription[T]) Request(d rivulet.Demand) {
	s.sink.Demand(d)
}

// Cancel stops delivery to this subscriber only.
// The subscriber receives no completion.
func (s *Subscription[T]) Cancel() {
	s.sink.Cancel()
}

// finish delivers the relay's final completion,
// reporting whether the subscriber was still live.
func (s *Subscription[T]) finish() bool {
	return s.sink.ForceCompletion(rivulet.Finished())
}

func (s *Subscription[T]) inert() bool {
	return s.sink.Released()
}
