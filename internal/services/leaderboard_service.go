package services

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/flexit/backend/internal/models"
	"github.com/flexit/backend/internal/store"
)

// Response size stays predictable; the board is display-only and
// re-fetched per tab switch, so no pagination cursor is needed.
const maxLeaderboardSize = 50

// LeaderboardService produces the ranked, optionally time-windowed view
// of completed entries. Every call queries the store fresh, so results
// always reflect the latest committed reconciliation.
type LeaderboardService struct {
	store store.EntryStore
	now   func() time.Time
}

func NewLeaderboardService(entryStore store.EntryStore) *LeaderboardService {
	return &LeaderboardService{
		store: entryStore,
		now:   time.Now,
	}
}

// List returns completed entries ranked by amount paid descending; equal
// amounts rank the earlier payer first. The window is evaluated against
// wall-clock now at query time.
func (s *LeaderboardService) List(ctx context.Context, window models.TimeWindow) ([]models.LeaderboardEntry, error) {
	since := window.Start(s.now())
	return s.store.ListCompleted(ctx, since, maxLeaderboardSize)
}

// GetLeaderboard serves the public ranking.
// @Summary Get the leaderboard
// @Description Ranked completed entries, optionally restricted to a time window
// @Tags leaderboard
// @Produce json
// @Param window query string false "Time window: today, week, month or all (default all)"
// @Success 200 {object} object{entries=[]models.PublicEntry,count=int}
// @Failure 500 {object} ErrorResponse
// @Router /leaderboard [get]
func (s *LeaderboardService) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	window := models.ParseTimeWindow(r.URL.Query().Get("window"))

	entries, err := s.List(r.Context(), window)
	if err != nil {
		log.Printf("[LEADERBOARD] Failed to fetch entries: %v", err)
		SendErrorResponse(w, "Failed to fetch leaderboard", http.StatusInternalServerError, nil)
		return
	}

	public := make([]models.PublicEntry, 0, len(entries))
	for i := range entries {
		public = append(public, entries[i].Public(i+1))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"entries": public,
		"count":   len(public),
	})
}
