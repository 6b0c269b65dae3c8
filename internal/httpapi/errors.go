package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/roach88/peersync/internal/domain"
)

// ApiError is the JSON body of every error response except 401.
type ApiError struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// unauthorizedBody is the fixed 401 response body.
const unauthorizedBody = `{"error":"unauthorized","message":"Invalid or missing token"}`

// wireUnprocessable is the error code sent for injected failures. They must
// be indistinguishable from a genuine unprocessable-entity rejection.
const wireUnprocessable = "unprocessable_entity"

// wireCode is the error code written in a response body.
func wireCode(code domain.Code) string {
	if code == domain.CodeInjectedFailure {
		return wireUnprocessable
	}
	return string(code)
}

// statusFor maps a domain error code to its HTTP status.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeBadInput:
		return http.StatusBadRequest
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInjectedFailure:
		return http.StatusUnprocessableEntity
	case domain.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into an HTTP response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	if code == domain.CodeUnauthorized {
		writeUnauthorized(w)
		return
	}

	status := statusFor(code)
	message := "internal error"
	var de *domain.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	if code == domain.CodeInternal {
		code = domain.CodeLocalPersistence
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, ApiError{
		Timestamp: s.now().UTC(),
		Status:    status,
		Error:     wireCode(code),
		Message:   message,
		Path:      r.URL.Path,
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}
