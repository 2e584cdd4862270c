// Package rivulet contains the core types of a pull-based,
// demand-driven stream protocol, and a few source publishers.
//
// A [Publisher] produces values for any number of [Subscriber] values.
// Each subscriber receives exactly one [Subscription],
// through which it signals how many more values it is willing to accept
// (its [Demand]) and through which it may cancel.
// A publisher never delivers more values than have been demanded.
//
// The operators built on this protocol live in subpackages:
// [github.com/gordian-engine/rivulet/rvlatest] pairs a primary stream
// with the latest value of a secondary stream,
// and [github.com/gordian-engine/rivulet/rvrelay] fans out pushed values
// to many live subscribers.
package rivulet
