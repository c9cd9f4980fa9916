package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/targets"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// QueryRequest is the body of POST /get_data.
type QueryRequest struct {
	// Targets is a string or list of strings of addresses, ranges and CIDR
	// blocks. Missing means the configured default targets.
	Targets targets.Spec `json:"targets"`

	// DataSelectors lists the fields to return, in order. Missing or empty
	// means every field.
	DataSelectors []string `json:"data_selectors"`
}

// QueryResponse is returned instead of the bare host map when the caller
// asks for per-host errors with ?include_errors=true.
type QueryResponse struct {
	Data   map[string]telemetry.Projection `json:"data"`
	Errors map[string]string               `json:"errors"`
}

// handleQuery scans the requested targets and returns each responding
// miner's record, keyed by address. Hosts that did not respond are left
// out unless include_errors is set.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return
	}

	includeErrors := false
	if v := r.URL.Query().Get("include_errors"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "include_errors must be a boolean")
			return
		}
		includeErrors = b
	}

	res, err := s.fleet.Query(r.Context(), req.Targets, req.DataSelectors)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	for host, herr := range res.Errors {
		s.logger.Debug("host omitted from query", "host", host, "reason", fleet.Reason(herr), "error", herr)
	}

	if !includeErrors {
		writeJSON(w, http.StatusOK, res.Data)
		return
	}

	resp := QueryResponse{
		Data:   res.Data,
		Errors: make(map[string]string, len(res.Errors)),
	}
	for host, herr := range res.Errors {
		resp.Errors[host] = fleet.Reason(herr)
	}
	writeJSON(w, http.StatusOK, resp)
}
