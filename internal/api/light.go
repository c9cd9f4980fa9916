package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/minergate/internal/miner"
)

// LightResponse is the body of GET /{host}/led/{mode}.
type LightResponse struct {
	LightStatus bool `json:"light_status"`
}

// handleLight runs a fault-light operation.
//
// on and off fail with 400 when the miner refuses the command. A refused
// toggle is not an error: the response carries the unchanged state.
func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	host := chi.URLParam(r, "host")
	mode, err := miner.ParseLightMode(chi.URLParam(r, "mode"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid light mode, expected one of: on, off, toggle, status")
		return
	}

	state, err := s.fleet.SetLight(r.Context(), host, mode, "api")
	if err != nil {
		s.writeHostError(w, r, host, err)
		return
	}
	writeJSON(w, http.StatusOK, LightResponse{LightStatus: state})
}
