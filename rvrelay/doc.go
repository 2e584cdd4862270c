// Package rvrelay contains [Relay], a multicast publisher
// for values pushed in by its owner.
//
// A relay never fails.
// Its subscribers only observe completion when the relay is disposed,
// so the owner is expected to pair every [New] with a deferred
// [*Relay.Dispose].
package rvrelay
