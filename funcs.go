package rivulet

// PublisherFunc adapts a plain function to the [Publisher] interface.
type PublisherFunc[T any] func(s Subscriber[T])

func (f PublisherFunc[T]) Subscribe(s Subscriber[T]) {
	f(s)
}

// SubscriberFuncs assembles a [Subscriber] from individual callbacks.
// Any nil field is treated as a no-op;
// a nil OnValue requests no further demand.
type SubscriberFuncs[T any] struct {
	OnSubscription func(Subscription)
	OnValue        func(T) Demand
	OnCompletion   func(Completion)
}

func (f SubscriberFuncs[T]) ReceiveSubscription(s Subscription) {
	if f.OnSubscription != nil {
		f.OnSubscription(s)
	}
}

func (f SubscriberFuncs[T]) ReceiveValue(v T) Demand {
	if f.OnValue == nil {
		return None
	}
	return f.OnValue(v)
}

func (f SubscriberFuncs[T]) ReceiveCompletion(c Completion) {
	if f.OnCompletion != nil {
		f.OnCompletion(c)
	}
}

// NopSubscription is a Subscription that ignores every call.
// It is handed to subscribers of publishers that have already terminated.
type NopSubscription struct{}

func (NopSubscription) Request(Demand) {}
func (NopSubscription) Cancel()        {}
