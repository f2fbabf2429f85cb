package handler

import (
	"net/http"

	"QueryFilter/internal/logger"
)

// CountHandler обрабатывает запросы на подсчет количества записей.
// Фильтр берётся из разобранного запроса; проекция и пагинация игнорируются.
// Возвращает JSON с полем count.
func (s *Service) CountHandler(w http.ResponseWriter, r *http.Request) {
	m, res, ok := s.parse(w, r, "/api/count")
	if !ok {
		return
	}
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "ERR_NO_DATABASE", "database is not configured")
		return
	}

	count, err := m.CountWithCache(r.Context(), s.DB, s.Cache, s.CountTTL, res.Filter)
	if err != nil {
		logger.Error("count_failed", map[string]any{
			"endpoint": "/api/count",
			"model":    m.Name,
			"error":    err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "ERR_INTERNAL", "Count failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}
