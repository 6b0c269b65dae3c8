package httpapi

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/peersync/internal/domain"
	"github.com/roach88/peersync/internal/metrics"
	"github.com/roach88/peersync/internal/replication"
)

// UserAPI is the user service as seen by the handlers.
type UserAPI interface {
	Create(ctx context.Context, in domain.UserEnvelope) (domain.User, error)
	Update(ctx context.Context, externalID string, in domain.UserEnvelope) (domain.User, error)
	Delete(ctx context.Context, externalID string) error
	Get(ctx context.Context, externalID string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// OrderAPI is the order service as seen by the handlers.
type OrderAPI interface {
	Create(ctx context.Context, in domain.OrderEnvelope) (domain.Order, error)
	Update(ctx context.Context, externalID string, in domain.OrderEnvelope) (domain.Order, error)
	Delete(ctx context.Context, externalID string) error
	Get(ctx context.Context, externalID string) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

// DeliveryAPI is the delivery agent service as seen by the handlers.
type DeliveryAPI interface {
	Create(ctx context.Context, in domain.DeliveryInput) (domain.DeliveryAgent, error)
	Update(ctx context.Context, externalID string, in domain.DeliveryInput) (domain.DeliveryAgent, error)
	Delete(ctx context.Context, externalID string) error
	Get(ctx context.Context, externalID string) (domain.DeliveryAgent, error)
	List(ctx context.Context) ([]domain.DeliveryAgent, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	// ServiceName is reported by /health ("a" or "b").
	ServiceName string

	// Token is the static bearer token every non-exempt request must carry.
	Token string

	Users      UserAPI
	Orders     OrderAPI
	Deliveries DeliveryAPI

	// Health is pinged by /health. Optional.
	Health Pinger

	Logger *slog.Logger
}

// exemptPrefixes are served without authentication. A prefix matches
// itself and its subpaths only.
var exemptPrefixes = []string{"/health", "/metrics", "/docs"}

func isExempt(path string) bool {
	for _, p := range exemptPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Server is the REST surface of one peer.
type Server struct {
	opts   Options
	router *mux.Router
	logger *slog.Logger
	now    func() time.Time
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:   opts,
		router: mux.NewRouter(),
		logger: logger.With("component", "http"),
		now:    time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.instrument, s.authenticate, replication.Gate)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleDocs).Methods(http.MethodGet)

	r.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", s.getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.updateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{id}", s.deleteUser).Methods(http.MethodDelete)

	r.HandleFunc("/orders", s.listOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", s.createOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", s.getOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.updateOrder).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id}", s.deleteOrder).Methods(http.MethodDelete)

	r.HandleFunc("/deliveries", s.listDeliveries).Methods(http.MethodGet)
	r.HandleFunc("/deliveries", s.createDelivery).Methods(http.MethodPost)
	r.HandleFunc("/deliveries/{id}", s.getDelivery).Methods(http.MethodGet)
	r.HandleFunc("/deliveries/{id}", s.updateDelivery).Methods(http.MethodPut)
	r.HandleFunc("/deliveries/{id}", s.deleteDelivery).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, domain.NewNotFound("route", r.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ApiError{
			Timestamp: s.now().UTC(),
			Status:    http.StatusMethodNotAllowed,
			Error:     "method_not_allowed",
			Message:   r.Method + " not allowed",
			Path:      r.URL.Path,
		})
	})
}

// authenticate rejects requests without the static bearer token.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || s.opts.Token == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) != 1 {
			s.logger.Debug("unauthorized request", "method", r.Method, "path", r.URL.Path)
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request duration per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(elapsed.Seconds())
		s.logger.Debug("request served",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"propagated", replication.HeaderValue(r.Header.Get(replication.Header)),
			"duration", elapsed,
		)
	})
}
