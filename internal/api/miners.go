package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/minergate/internal/telemetry"
)

// handleGetData returns the full telemetry record of one miner.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	rec, err := s.fleet.Telemetry(r.Context(), host)
	if err != nil {
		s.writeHostError(w, r, host, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleView returns one of the fixed-shape telemetry views
// (hashrate, fans, temps, power, chips).
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := telemetry.LookupView(chi.URLParam(r, "view"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}

	host := chi.URLParam(r, "host")
	rec, err := s.fleet.Telemetry(r.Context(), host)
	if err != nil {
		s.writeHostError(w, r, host, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Apply(rec))
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	errs, err := s.fleet.Errors(r.Context(), host)
	if err != nil {
		s.writeHostError(w, r, host, err)
		return
	}
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"errors": errs})
}

func (s *Server) handleHostname(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	name, err := s.fleet.Hostname(r.Context(), host)
	if err != nil {
		s.writeHostError(w, r, host, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hostname": name})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	model, err := s.fleet.Model(r.Context(), host)
	if err != nil {
		s.writeHostError(w, r, host, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"model": model})
}
