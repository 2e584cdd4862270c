// Package rivulettest contains subscribers and publishers
// that simplify testing code built on the rivulet protocol.
package rivulettest

import (
	"slices"
	"sync"

	"github.com/gordian-engine/rivulet"
)

// Recorder is a [rivulet.Subscriber] that records everything it receives.
//
// It requests its initial demand as soon as it receives a subscription,
// and it returns its per-value demand from every ReceiveValue call.
type Recorder[T any] struct {
	initial, perValue rivulet.Demand

	// OnValue, if set before subscribing,
	// is called after each value is recorded.
	// It may call back into the Recorder, for instance to cancel.
	OnValue func(v T)

	mu            sync.Mutex
	sub           rivulet.Subscription
	subscriptions int
	values        []T
	completions   []rivulet.Completion

	done chan struct{}
}

// NewRecorder returns a Recorder that requests initial demand on subscription
// and perValue demand after each received value.
func NewRecorder[T any](initial, perValue rivulet.Demand) *Recorder[T] {
	return &Recorder[T]{
		initial:  initial,
		perValue: perValue,
		done:     make(chan struct{}),
	}
}

func (r *Recorder[T]) ReceiveSubscription(s rivulet.Subscription) {
	r.mu.Lock()
	r.subscriptions++
	if r.sub == nil {
		r.sub = s
	}
	r.mu.Unlock()

	s.Request(r.initial)
}

func (r *Recorder[T]) ReceiveValue(v T) rivulet.Demand {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()

	if r.OnValue != nil {
		r.OnValue(v)
	}

	return r.perValue
}

func (r *Recorder[T]) ReceiveCompletion(c rivulet.Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completions = append(r.completions, c)
	if len(r.completions) == 1 {
		close(r.done)
	}
}

// Request forwards d to the recorded subscription.
// It panics if no subscription has been received.
func (r *Recorder[T]) Request(d rivulet.Demand) {
	r.subscription().Request(d)
}

// Cancel cancels the recorded subscription.
// It panics if no subscription has been received.
func (r *Recorder[T]) Cancel() {
	r.subscription().Cancel()
}

func (r *Recorder[T]) subscription() rivulet.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub == nil {
		panic("Recorder has not received a subscription")
	}
	return r.sub
}

// Subscriptions returns the number of ReceiveSubscription calls.
func (r *Recorder[T]) Subscriptions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscriptions
}

// Values returns a copy of the values received so far.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.values)
}

// Completions returns a copy of the completions received so far.
// A well-behaved publisher delivers at most one.
func (r *Recorder[T]) Completions() []rivulet.Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.completions)
}

// Done returns a channel that is closed upon the first completion.
func (r *Recorder[T]) Done() <-chan struct{} {
	return r.done
}
