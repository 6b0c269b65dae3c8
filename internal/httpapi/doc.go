// Package httpapi exposes the entity services over REST.
//
// Every request passes authentication (static bearer token) and the
// replication gate, which records in the request context whether the
// request was propagated by the peer. Handlers decode input, call the
// services and encode the result; writeError is the single place where
// domain errors become HTTP statuses.
package httpapi
