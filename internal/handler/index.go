package handler

import (
	"net/http"

	"QueryFilter/internal/logger"
)

type indexResponse struct {
	Items []map[string]any `json:"items"`
	Page  *int             `json:"page"`
	Limit *int             `json:"limit"`
	Skip  *int             `json:"skip"`
}

// IndexHandler parses the query, runs it against the collection table and
// returns the matching rows.
func (s *Service) IndexHandler(w http.ResponseWriter, r *http.Request) {
	m, res, ok := s.parse(w, r, "/api/index")
	if !ok {
		return
	}
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "ERR_NO_DATABASE", "database is not configured")
		return
	}

	items, err := m.Index(r.Context(), s.DB, res)
	if err != nil {
		logger.Error("index_failed", map[string]any{
			"endpoint": "/api/index",
			"model":    m.Name,
			"error":    err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "ERR_INTERNAL", "Failed to resolve data: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, indexResponse{
		Items: items,
		Page:  res.Page,
		Limit: res.Limit,
		Skip:  res.Skip,
	})
}
