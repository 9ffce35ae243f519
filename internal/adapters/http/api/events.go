package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/arena/internal/adapters/journal"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
)

// EventDependencies defines the interface for journal queries.
type EventDependencies interface {
	Events(ctx context.Context, f journal.Filter) ([]model.Event, error)
}

// EventsHandler handles event journal requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleListEvents handles GET /events?kind=&challenge_id=&account=&limit=.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	q := r.URL.Query()

	f := journal.Filter{
		Kind:    model.Kind(q.Get("kind")),
		Account: types.NewAccount(q.Get("account")),
	}
	if v := q.Get("challenge_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		f.ChallengeID = id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, NewKind(op, ErrBadRequest))
			return
		}
		f.Limit = n
	}

	events, err := h.deps.Events(r.Context(), f)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, events)
}
