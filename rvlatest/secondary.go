package rvlatest

import (
	"sync/atomic"

	"github.com/gordian-engine/rivulet"
)

// secondaryObserver subscribes to the secondary publisher
// on behalf of a subscription.
//
// The secondary publisher owns the observer.
// The observer's handle to its subscription is cleared when the subscription
// closes, so a finished or cancelled subscription is not kept reachable
// by the secondary, and any late secondary callback is a no-op.
type secondaryObserver[P, S, O any] struct {
	parent atomic.Pointer[subscription[P, S, O]]
}

func newSecondaryObserver[P, S, O any](s *subscription[P, S, O]) *secondaryObserver[P, S, O] {
	o := new(secondaryObserver[P, S, O])
	o.parent.Store(s)
	return o
}

// detach drops the handle to the subscription.
func (o *secondaryObserver[P, S, O]) detach() {
	o.parent.Store(nil)
}

func (o *secondaryObserver[P, S, O]) ReceiveSubscription(sub rivulet.Subscription) {
	s := o.parent.Load()
	if s == nil {
		sub.Cancel()
		return
	}
	s.receiveSecondarySubscription(sub)
}

func (o *secondaryObserver[P, S, O]) ReceiveValue(v S) rivulet.Demand {
	if s := o.parent.Load(); s != nil {
		s.receiveSecondaryValue(v)
	}

	// Unlimited demand was already requested.
	return rivulet.None
}

func (o *secondaryObserver[P, S, O]) ReceiveCompletion(c rivulet.Completion) {
	if s := o.parent.Load(); s != nil {
		s.receiveSecondaryCompletion(c)
	}
}
