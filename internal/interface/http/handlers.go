package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/hydromate/hydromate-bot/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// handleLeaderboard handles GET /api/leaderboard?date=YYYY-MM-DD&limit=N.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leaderboard == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard handler not configured")
		return
	}

	date, ok := s.parseDate(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	dto, err := s.deps.Leaderboard.Handle(r.Context(), query.GetLeaderboardQuery{Date: date, Limit: limit})
	if err != nil {
		s.internalError(w, r, "leaderboard", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// handleProgress handles GET /api/users/{id}/progress?date=YYYY-MM-DD&history=N.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.Progress == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	date, ok := s.parseDate(w, r)
	if !ok {
		return
	}

	history := 0
	if raw := r.URL.Query().Get("history"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 31 {
			writeJSONError(w, http.StatusBadRequest, "invalid_history", "history must be between 0 and 31")
			return
		}
		history = n
	}

	dto, err := s.deps.Progress.Handle(r.Context(), query.GetDailyProgressQuery{
		UserID:      mux.Vars(r)["id"],
		Date:        date,
		HistoryDays: history,
	})
	if err != nil {
		s.internalError(w, r, "progress", err)
		return
	}
	if !dto.Found {
		writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

// handleAchievements handles GET /api/users/{id}/achievements.
func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	if s.deps.Achievements == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Achievements handler not configured")
		return
	}

	dto, err := s.deps.Achievements.Handle(r.Context(), query.GetAchievementsQuery{UserID: mux.Vars(r)["id"]})
	if err != nil {
		s.internalError(w, r, "achievements", err)
		return
	}
	if !dto.Found {
		writeJSONError(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// parseDate reads the optional ?date= parameter. A zero time means today.
func (s *Server) parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" || s.deps.Days == nil {
		return time.Time{}, true
	}

	t, err := s.deps.Days.ParseDayKey(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error("api request failed",
		"op", op,
		"error", err,
		"request_id", getRequestID(r.Context()),
	)
	writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to load data")
}
