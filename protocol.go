package rivulet

// Publisher is a source of values for any number of subscribers.
type Publisher[T any] interface {
	// Subscribe attaches s to the publisher.
	// The publisher must eventually call s.ReceiveSubscription,
	// before delivering any value or completion to s.
	Subscribe(s Subscriber[T])
}

// Subscriber receives values from a single [Publisher].
//
// Calls into one Subscriber are never concurrent:
// ReceiveSubscription happens first and exactly once,
// then zero or more ReceiveValue calls,
// then at most one ReceiveCompletion.
type Subscriber[T any] interface {
	ReceiveSubscription(s Subscription)

	// ReceiveValue delivers one value.
	// The returned Demand is added to the subscriber's outstanding demand;
	// return the zero Demand to leave it unchanged.
	ReceiveValue(v T) Demand

	ReceiveCompletion(c Completion)
}

// Subscription is the link between one publisher and one subscriber.
// It is owned by the subscriber.
type Subscription interface {
	// Request adds d to the outstanding demand.
	// Requesting zero demand is a no-op.
	Request(d Demand)

	// Cancel stops delivery to the subscriber.
	// Cancel is idempotent.
	Cancel()
}

// Completion is the final signal on a subscription.
// A nil Err indicates the stream finished successfully.
type Completion struct {
	Err error
}

// Finished returns a successful Completion.
func Finished() Completion {
	return Completion{}
}

// Failed returns a Completion carrying err.
// If err is nil, the returned value is indistinguishable from [Finished].
func Failed(err error) Completion {
	return Completion{Err: err}
}

// IsFinished reports whether c represents successful completion.
func (c Completion) IsFinished() bool {
	return c.Err == nil
}

func (c Completion) String() string {
	if c.Err == nil {
		return "finished"
	}
	return "failed: " + c.Err.Error()
}
