package handler

import "net/http"

// ParseHandler отдаёт результат разбора без обращения к БД.
func (s *Service) ParseHandler(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.parse(w, r, "/api/parse")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}
