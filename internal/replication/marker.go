package replication

import (
	"context"
	"strings"
)

// Header is the request header that marks a request as a propagated
// mutation from the peer.
const Header = "X-Replicated"

type propagatedKey struct{}

// WithPropagated returns a copy of ctx carrying the replication marker.
func WithPropagated(ctx context.Context, propagated bool) context.Context {
	return context.WithValue(ctx, propagatedKey{}, propagated)
}

// IsPropagated reports whether ctx belongs to a request that arrived via
// propagation. A context without a marker reads as false.
func IsPropagated(ctx context.Context) bool {
	v, _ := ctx.Value(propagatedKey{}).(bool)
	return v
}

// HeaderValue interprets a raw X-Replicated header value. Only "true"
// (any case, surrounding whitespace ignored) counts.
func HeaderValue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
