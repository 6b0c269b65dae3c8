// Package domain holds the entities shared by both peers, the envelopes that
// carry them across the service boundary, and the error taxonomy every layer
// reports in.
//
// # Identifiers
//
// Every entity has two identifiers:
//   - ID: private, assigned by the local store, never leaves the process
//   - ExternalID: a UUID, identical on both peers, the only cross-service key
//
// Envelopes (UserEnvelope, OrderEnvelope) are keyed by ExternalID only. They
// are the body of create/update requests on the public API and of propagation
// calls to the peer, so a propagated write travels exactly the same path as a
// direct one.
//
// # Errors
//
// All failures surfaced to callers are *Error values carrying a Code. The
// HTTP layer translates codes to statuses in one place; nothing below it
// knows about HTTP.
package domain
