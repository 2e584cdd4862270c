// Package rvtest contains helpers shared by tests across the module.
package rvtest

import (
	"testing"
	"time"
)

// soon is how long the *Soon helpers wait before failing the test.
const soon = 100 * time.Millisecond

// ReceiveSoon returns the next value from ch,
// failing the test if nothing arrives in a short duration.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(soon):
		t.Fatalf("did not receive value within %s", soon)
	}

	panic("unreachable")
}

// SendSoon sends v on ch,
// failing the test if the send does not complete in a short duration.
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	select {
	case ch <- v:
	case <-time.After(soon):
		t.Fatalf("could not send value within %s", soon)
	}
}

// IsSending fails the test if ch does not have a value ready to receive.
// A closed channel is always sending.
func IsSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
	default:
		t.Fatal("channel was not sending")
	}
}

// NotSending fails the test if ch has a value ready to receive.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case <-ch:
		t.Fatal("channel was sending")
	default:
	}
}
