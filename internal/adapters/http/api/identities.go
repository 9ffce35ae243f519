package api

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/okian/arena/internal/domain/identity"
	"github.com/okian/arena/internal/domain/reputation"
	"github.com/okian/arena/internal/domain/types"
)

// IdentityDependencies defines the identity and reputation operations.
type IdentityDependencies interface {
	MintIdentity(ctx context.Context, caller types.Account) (identity.Record, error)
	Identity(ctx context.Context, account types.Account) (identity.Record, error)
	TokenMetadata(ctx context.Context, id uint64) (identity.Metadata, error)
	TokenURI(ctx context.Context, id uint64) (string, error)
	TransferIdentity(ctx context.Context, caller, to types.Account, id uint64) error
	UpdateStats(ctx context.Context, caller, account types.Account, st identity.Stats) (identity.Record, error)
	SyncReputation(ctx context.Context, caller types.Account) (int, error)
}

// IdentityHandler handles identity and reputation requests.
type IdentityHandler struct {
	deps IdentityDependencies
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(deps IdentityDependencies) *IdentityHandler {
	return &IdentityHandler{deps: deps}
}

// HandleMint handles POST /identities.
func (h *IdentityHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	const op = "api.mint_identity"
	caller, _ := CallerFrom(r.Context())
	rec, err := h.deps.MintIdentity(r.Context(), caller)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleGetIdentity handles GET /identities/{account}.
func (h *IdentityHandler) HandleGetIdentity(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_identity"
	rec, err := h.deps.Identity(r.Context(), accountParam(r))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleTokenMetadata handles GET /tokens/{id}/metadata.
func (h *IdentityHandler) HandleTokenMetadata(w http.ResponseWriter, r *http.Request) {
	const op = "api.token_metadata"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	md, err := h.deps.TokenMetadata(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// HandleTokenURI handles GET /tokens/{id}/uri.
func (h *IdentityHandler) HandleTokenURI(w http.ResponseWriter, r *http.Request) {
	const op = "api.token_uri"
	id, err := idParam(r, op)
	if err != nil {
		writeError(w, err)
		return
	}
	uri, err := h.deps.TokenURI(r.Context(), id)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token_uri": uri})
}

type transferRequest struct {
	To      string `json:"to"`
	TokenID uint64 `json:"token_id"`
}

// HandleTransfer handles POST /identities/{account}/transfer. Identities are
// bound to their owner, so this always fails.
func (h *IdentityHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	const op = "api.transfer_identity"
	var req transferRequest
	if err := decode(r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFrom(r.Context())
	if err := h.deps.TransferIdentity(r.Context(), caller, types.NewAccount(req.To), req.TokenID); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateStats handles PUT /admin/identities/{account}/stats.
func (h *IdentityHandler) HandleUpdateStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_stats"
	var st identity.Stats
	if err := decode(r, op, &st); err != nil {
		writeError(w, err)
		return
	}
	caller, _ := CallerFrom(r.Context())
	rec, err := h.deps.UpdateStats(r.Context(), caller, accountParam(r), st)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleSync handles POST /admin/reputation/sync.
func (h *IdentityHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.sync_reputation"
	caller, _ := CallerFrom(r.Context())
	n, err := h.deps.SyncReputation(r.Context(), caller)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

type reputationResponse struct {
	Wins          int64 `json:"wins"`
	Participation int64 `json:"participation"`
	ArenaPoints   int64 `json:"arena_points"`
	Reputation    int64 `json:"reputation"`
}

// HandleCalculateReputation handles GET /reputation?wins=&participation=&arena_points=.
func (h *IdentityHandler) HandleCalculateReputation(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculate_reputation"
	var in reputation.Input
	fields := []struct {
		name string
		max  int64
		dst  *int64
	}{
		{"wins", reputation.MaxWins, &in.Wins},
		{"participation", reputation.MaxParticipation, &in.Participation},
		{"arena_points", math.MaxInt64, &in.ArenaPoints},
	}
	for _, f := range fields {
		v := r.URL.Query().Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 || n > f.max {
			writeError(w, NewKind(op+" "+f.name, ErrBadRequest))
			return
		}
		*f.dst = n
	}
	writeJSON(w, http.StatusOK, reputationResponse{
		Wins:          in.Wins,
		Participation: in.Participation,
		ArenaPoints:   in.ArenaPoints,
		Reputation:    reputation.Of(in),
	})
}

// HandleFormula handles GET /reputation/formula.
func (h *IdentityHandler) HandleFormula(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"formula": reputation.FormulaDescription()})
}
