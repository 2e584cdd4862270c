// Package rvlatest contains an operator that pairs every value
// of a primary stream with the latest value of a secondary stream.
//
// The secondary stream is subscribed first, with unlimited demand.
// Until it produces its first value, the subscription is priming:
// no primary subscription exists, and demand from downstream is held.
// The first secondary value makes the subscription active:
// the primary stream is subscribed, and the held demand is forwarded
// to it as a single request.
//
// Secondary values never produce output themselves.
// If the secondary completes or fails while priming,
// that completion is forwarded downstream and the primary is never subscribed.
// Once active, a secondary that finishes successfully is ignored
// (its latest value remains in use),
// whereas a secondary failure terminates the subscription.
package rvlatest
