// Package replication implements the peer replication control layer.
//
// A mutation accepted by this service is applied to the local store and
// then pushed synchronously to the peer service. A mutation that itself
// arrived from the peer is applied locally and never pushed again; this is
// what stops two peers from bouncing a write between them forever.
//
// The pieces:
//
//   - Gate reads the X-Replicated header of every inbound request and
//     stores the result in the request context (the replication marker).
//   - Replicator applies a Mutation locally, consults the marker and, for
//     non-propagated requests, invokes the peer transport.
//   - FaultInjector forces a synthetic failure after every Nth successful
//     create so callers can exercise the "committed locally, failed
//     overall" path.
//
// The marker lives only in the request's context.Context. It is never
// stored in a global, so concurrent requests cannot observe each other's
// marker and nothing has to be cleared when a request ends.
package replication
