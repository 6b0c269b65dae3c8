package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roach88/peersync/internal/domain"
)

func (s *Server) listDeliveries(w http.ResponseWriter, r *http.Request) {
	agents, err := s.opts.Deliveries.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) getDelivery(w http.ResponseWriter, r *http.Request) {
	d, err := s.opts.Deliveries.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) createDelivery(w http.ResponseWriter, r *http.Request) {
	var in domain.DeliveryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.opts.Deliveries.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) updateDelivery(w http.ResponseWriter, r *http.Request) {
	var in domain.DeliveryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.opts.Deliveries.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDelivery(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Deliveries.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
