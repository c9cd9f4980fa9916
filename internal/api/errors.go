package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/miner"
	"github.com/nerrad567/minergate/internal/targets"
	"github.com/nerrad567/minergate/internal/telemetry"
)

// Error is the body of every error response.
type Error struct {
	Detail string `json:"detail"`
}

// Fixed response details.
const (
	detailBadTargets        = "Bad constructor string"
	detailBadDataPoint      = "Bad data point: "
	detailActivationFailed  = "Failed to turn on fault light"
	detailDeactivateFailed  = "Failed to turn off fault light"
	detailLightQueryFailed  = "Failed to read fault light state"
	detailRequestCancelled  = "Request cancelled"
	detailAuditNotAvailable = "audit logging not configured"
)

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeDetail writes {"detail": detail}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, Error{Detail: detail})
}

// writeHostError maps a single-host gateway error onto a response.
func (s *Server) writeHostError(w http.ResponseWriter, r *http.Request, host string, err error) {
	var status int
	var detail string

	switch {
	case errors.Is(err, targets.ErrMalformedTarget):
		status, detail = http.StatusBadRequest, "Invalid host: "+host
	case errors.Is(err, fleet.ErrCancelled):
		status, detail = http.StatusServiceUnavailable, detailRequestCancelled
	case errors.Is(err, fleet.ErrUnreachable):
		status, detail = http.StatusNotFound, "No miner found at "+host
	case errors.Is(err, miner.ErrActivationFailed):
		status, detail = http.StatusBadRequest, detailActivationFailed
	case errors.Is(err, miner.ErrDeactivationFailed):
		status, detail = http.StatusBadRequest, detailDeactivateFailed
	case errors.Is(err, miner.ErrLightQuery):
		status, detail = http.StatusBadGateway, detailLightQueryFailed
	case errors.Is(err, fleet.ErrQueryFailed):
		status, detail = http.StatusBadGateway, "Failed to query miner at "+host
	default:
		s.logger.Error("unexpected gateway error", "host", host, "path", r.URL.Path, "error", err)
		status, detail = http.StatusInternalServerError, "internal server error"
	}

	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		s.logger.Warn("miner request failed", "host", host, "path", r.URL.Path, "status", status, "error", err)
	}
	writeDetail(w, status, detail)
}

// writeQueryError maps a fleet query rejection onto a 400.
func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	var unknown *telemetry.UnknownFieldError
	switch {
	case errors.Is(err, targets.ErrMalformedTarget):
		writeDetail(w, http.StatusBadRequest, detailBadTargets)
	case errors.As(err, &unknown):
		writeDetail(w, http.StatusBadRequest, detailBadDataPoint+unknown.Name)
	default:
		s.logger.Error("fleet query failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
