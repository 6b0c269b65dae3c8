// Package service holds the entity services. A service validates input,
// mints external identifiers for new entities and hands the local write to
// the entity's replicator, which decides whether to propagate it.
//
// Writes arriving from the peer go through exactly the same methods; the
// replication marker in the context is the only difference.
package service
