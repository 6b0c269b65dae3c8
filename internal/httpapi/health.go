package httpapi

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Service: s.opts.ServiceName}
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			resp.Status = "down"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// routeDoc describes one route on /docs.
type routeDoc struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

// handleDocs lists the registered routes.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	byPath := map[string][]string{}
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		byPath[tpl] = append(byPath[tpl], methods...)
		return nil
	})

	docs := make([]routeDoc, 0, len(byPath))
	for path, methods := range byPath {
		sort.Strings(methods)
		docs = append(docs, routeDoc{Path: path, Methods: methods})
	}
	sort.Slice(docs, func(i, j int) bool {
		return strings.Compare(docs[i].Path, docs[j].Path) < 0
	})
	writeJSON(w, http.StatusOK, docs)
}
