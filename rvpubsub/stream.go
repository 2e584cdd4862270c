package rvpubsub

import "context"

// Stream is one node of a linked list of event-driven values.
// The list has a single writer and many readers.
//
// A node is either a value node (Val and Next are set)
// or the terminal node (Closed is set and Next stays nil).
// Either way, Ready is closed once the node's fields are final.
//
// A reader holding on to an old node keeps every later node reachable,
// so readers that stop consuming must drop their reference.
type Stream[T any] struct {
	Ready chan struct{}

	Next   *Stream[T]
	Val    T
	Closed bool
}

// NewStream returns an unresolved stream node.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		Ready: make(chan struct{}),
	}
}

// Publish resolves s as a value node holding v.
//
// Publish panics if s was already resolved, by Publish or Close.
func (s *Stream[T]) Publish(v T) {
	s.Val = v
	s.Next = NewStream[T]()
	close(s.Ready)
}

// Close resolves s as the terminal node.
//
// Close panics if s was already resolved, by Publish or Close.
func (s *Stream[T]) Close() {
	s.Closed = true
	close(s.Ready)
}

// Writer appends to a stream, tracking its unresolved tail.
// A Writer must only be used from one goroutine at a time.
type Writer[T any] struct {
	tail *Stream[T]
}

// NewWriter returns a Writer and the head of the stream it writes.
func NewWriter[T any]() (*Writer[T], *Stream[T]) {
	head := NewStream[T]()
	return &Writer[T]{tail: head}, head
}

// Publish appends v to the stream.
func (w *Writer[T]) Publish(v T) {
	w.tail.Publish(v)
	w.tail = w.tail.Next
}

// Close terminates the stream.
// Calling Publish or Close afterwards panics.
func (w *Writer[T]) Close() {
	w.tail.Close()
}

// Tail returns the next node to be resolved.
// A [Publisher] created from Tail only observes values published afterwards,
// and does not keep earlier values reachable.
func (w *Writer[T]) Tail() *Stream[T] {
	return w.tail
}

// RunChannelToStream starts a goroutine that publishes
// every value received from ch to the returned stream, in order.
//
// When ch is closed, the stream is terminated with its terminal node.
// When ctx is cancelled first, the stream is left unterminated.
// The returned done channel is closed when the goroutine stops.
func RunChannelToStream[T any](ctx context.Context, ch <-chan T) (
	s *Stream[T], done <-chan struct{},
) {
	w, head := NewWriter[T]()
	doneCh := make(chan struct{})

	go runChannelToStream(ctx, ch, w, doneCh)

	return head, doneCh
}

func runChannelToStream[T any](
	ctx context.Context,
	ch <-chan T,
	w *Writer[T],
	done chan<- struct{},
) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case v, ok := <-ch:
			if !ok {
				w.Close()
				return
			}
			w.Publish(v)
		}
	}
}
