package replication

import "net/http"

// Gate sets the replication marker from the X-Replicated header before
// next runs. The marker is scoped to the derived request context, so it is
// gone once the request returns, panics included.
func Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		propagated := HeaderValue(r.Header.Get(Header))
		next.ServeHTTP(w, r.WithContext(WithPropagated(r.Context(), propagated)))
	})
}
