package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/challenge"
	"github.com/okian/arena/internal/domain/types"
)

// ChallengeDependencies defines the challenge lifecycle operations.
type ChallengeDependencies interface {
	CreateChallenge(ctx context.Context, caller types.Account, entryFee, duration int64) (challenge.Challenge, error)
	EnterChallenge(ctx context.Context, caller types.Account, id uint64, paid int64) (challenge.Challenge, error)
	SubmitScore(ctx context.Context, caller types.Account, id uint64, score int64) (int, error)
	FinalizeChallenge(ctx context.Context, caller types.Account, id uint64) (challenge.Challenge, error)
	Withdraw(ctx context.Context, caller types.Account) (int64, error)

	Challenge(ctx context.Context, id uint64) (challenge.View, error)
	Participants(ctx context.Context, id uint64) ([]types.Account, error)
	ChallengeIDCounter(ctx context.Context) uint64
	PendingWithdrawal(ctx context.Context, account types.Account) int64
}

// ChallengeHandler handles challenge and withdrawal requests.
type ChallengeHandler struct {
	deps ChallengeDependencies
}

// NewChallengeHandler creates a new challenge handler.
func NewChallengeHandler(deps ChallengeDependencies) *ChallengeHandler {
	return &ChallengeHandler{deps: deps}
}

type createRequest struct {
	EntryFee int64 `json:"entry_fee"`
	Duration int64 `json:"duration"`
}

// HandleCreate handles POST /challenges.
func (h *ChallengeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_challenge"
	var req createRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFrom(r.Context())
	c, err := h.deps.CreateChallenge(r.Context(), caller, req.EntryFee, req.Duration)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type enterRequest struct {
	PaidAmount int64 `json:"paid_amount"`
}

// HandleEnter handles POST /challenges/{id}/entries.
func (h *ChallengeHandler) HandleEnter(w http.ResponseWriter, r *http.Request) {
	const op = "api.enter_challenge"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	var req enterRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFrom(r.Context())
	c, err := h.deps.EnterChallenge(r.Context(), caller, id, req.PaidAmount)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type scoreRequest struct {
	Score int64 `json:"score"`
}

type scoreResponse struct {
	ChallengeID uint64 `json:"challenge_id"`
	Score       int64  `json:"score"`
	Rank        int    `json:"rank"`
}

// HandleSubmitScore handles POST /challenges/{id}/scores.
func (h *ChallengeHandler) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	var req scoreRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFrom(r.Context())
	rank, err := h.deps.SubmitScore(r.Context(), caller, id, req.Score)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{ChallengeID: id, Score: req.Score, Rank: rank})
}

// HandleFinalize handles POST /challenges/{id}/finalize.
func (h *ChallengeHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.finalize_challenge"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFrom(r.Context())
	c, err := h.deps.FinalizeChallenge(r.Context(), caller, id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleGetChallenge handles GET /challenges/{id}.
func (h *ChallengeHandler) HandleGetChallenge(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_challenge"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.deps.Challenge(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type participantsResponse struct {
	ChallengeID  uint64          `json:"challenge_id"`
	Count        int             `json:"count"`
	Participants []types.Account `json:"participants"`
}

// HandleParticipants handles GET /challenges/{id}/participants.
func (h *ChallengeHandler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	const op = "api.participants"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	ps, err := h.deps.Participants(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	if ps == nil {
		ps = []types.Account{}
	}
	writeJSON(w, http.StatusOK, participantsResponse{ChallengeID: id, Count: len(ps), Participants: ps})
}

// HandleCounter handles GET /challenges/counter.
func (h *ChallengeHandler) HandleCounter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{"counter": h.deps.ChallengeIDCounter(r.Context())})
}

type balanceResponse struct {
	Account types.Account `json:"account"`
	Amount  int64         `json:"amount"`
}

// HandlePending handles GET /withdrawals/{account}.
func (h *ChallengeHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	account := accountParam(r)
	writeJSON(w, http.StatusOK, balanceResponse{Account: account, Amount: h.deps.PendingWithdrawal(r.Context(), account)})
}

// HandleWithdraw handles POST /withdrawals.
func (h *ChallengeHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	const op = "api.withdraw"
	caller, _ := CallerFrom(r.Context())
	amount, err := h.deps.Withdraw(r.Context(), caller)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Account: caller, Amount: amount})
}
