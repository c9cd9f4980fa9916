package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/minergate/internal/audit"
)

// handleListAuditLogs returns a page of the light-command audit trail.
//
// Query parameters:
//   - action: e.g. light.toggle
//   - host: miner address
//   - source: api, mqtt or mcp
//   - since: RFC 3339 timestamp
//   - limit: page size (default 50, max 200)
//   - offset: entries to skip
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeDetail(w, http.StatusServiceUnavailable, detailAuditNotAvailable)
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:   q.Get("action"),
		EntityID: q.Get("host"),
		Source:   q.Get("source"),
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeDetail(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
