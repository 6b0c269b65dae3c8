package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/roach88/peersync/internal/domain"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads one JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.NewBadInput("request body is required")
		case errors.As(err, &tooBig):
			return domain.NewBadInput("request body too large")
		default:
			return domain.NewBadInput("malformed JSON body: %v", err)
		}
	}
	if dec.More() {
		return domain.NewBadInput("request body must hold a single JSON object")
	}
	return nil
}
