// Package rvpubsub connects asynchronous, goroutine-driven producers
// to the rivulet protocol.
//
// A [Stream] is a single-writer, many-reader linked list of values.
// [NewPublisher] exposes a stream as a [rivulet.Publisher]
// whose subscribers each read the list at their own pace,
// bounded by the demand they signal.
package rvpubsub
