package api

import (
	"net/http"
	"strconv"
)

// defaultHistoryLimit bounds the history page size
const defaultHistoryLimit = 100

// handleHistory returns the user's scan history, newest first. A user with
// no history gets an empty array, not an error.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		respondMessage(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid user ID", nil)
		return
	}

	limit := defaultHistoryLimit
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if n, err := strconv.Atoi(rawLimit); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	records, err := s.history.ListByUser(r.Context(), userID, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load scan history")
		respondMessage(w, http.StatusInternalServerError, "Failed to load history", nil)
		return
	}

	respondJSON(w, http.StatusOK, records)
}
