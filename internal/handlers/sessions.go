package handlers

import (
	"net/http"
	"strconv"

	"imagestream/internal/database"
	"imagestream/internal/logging"
)

const defaultSessionLimit = 50

// StatsEntry is one route/outcome row of GET /api/stats.
type StatsEntry struct {
	Route   string `json:"route"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
	Bytes   int64  `json:"bytes"`
}

// ListSessions returns the most recent stream sessions, newest first.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, database.MaxRecentSessions)
	}

	records, err := h.store.RecentSessions(r.Context(), limit)
	if err != nil {
		logging.Error("failed to list sessions: %v", err)
		writeJSONError(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []database.SessionRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, records)
}

// GetStats returns session counts and delivered bytes per route and outcome.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.SessionStats(r.Context())
	if err != nil {
		logging.Error("failed to read session stats: %v", err)
		writeJSONError(w, "failed to read session stats", http.StatusInternalServerError)
		return
	}

	entries := make([]StatsEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, StatsEntry{
			Route:   row.Route,
			Outcome: row.Outcome,
			Count:   row.Count,
			Bytes:   row.Bytes,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, entries)
}
