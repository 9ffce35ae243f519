package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/types"
)

// LeaderboardDependencies defines the interface for ranking reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, id uint64) ([]types.Entry, error)
	Rank(ctx context.Context, id uint64, account types.Account) (int, error)
}

// LeaderboardHandler handles leaderboard and rank requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /challenges/{id}/leaderboard.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type rankResponse struct {
	ChallengeID uint64        `json:"challenge_id"`
	Account     types.Account `json:"account"`
	Rank        int           `json:"rank"`
}

// HandleGetRank handles GET /challenges/{id}/rank/{account}.
func (h *LeaderboardHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	account := accountParam(r)
	rank, err := h.deps.Rank(r.Context(), id, account)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{ChallengeID: id, Account: account, Rank: rank})
}
