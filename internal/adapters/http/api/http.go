// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/token"
	"golang.org/x/time/rate"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	IdentityDependencies
	ChallengeDependencies
	LeaderboardDependencies
	EventDependencies
}

// Verifier checks bearer tokens.
type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	verifier Verifier
	limiter  *CallerRateLimiter
	mounts   []func(chi.Router)

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	identityHandler    *IdentityHandler
	challengeHandler   *ChallengeHandler
	leaderboardHandler *LeaderboardHandler
	eventsHandler      *EventsHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithVerifier sets the bearer token verifier. Without one every
// authenticated route answers 401.
func WithVerifier(v Verifier) Option {
	return func(s *Server) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithRateLimit throttles authenticated requests per caller. rps <= 0
// disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiter = NewCallerRateLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMount registers extra routes on the root router.
func WithMount(fn func(chi.Router)) Option {
	return func(s *Server) {
		if fn != nil {
			s.mounts = append(s.mounts, fn)
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		identityHandler:    NewIdentityHandler(deps),
		challengeHandler:   NewChallengeHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router serving every route.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", s.healthHandler.HandleMetrics())
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Get("/events", s.eventsHandler.HandleListEvents)

	r.Get("/identities/{account}", s.identityHandler.HandleGetIdentity)
	r.Get("/tokens/{id}/metadata", s.identityHandler.HandleTokenMetadata)
	r.Get("/tokens/{id}/uri", s.identityHandler.HandleTokenURI)
	r.Get("/reputation", s.identityHandler.HandleCalculateReputation)
	r.Get("/reputation/formula", s.identityHandler.HandleFormula)

	r.Get("/challenges/counter", s.challengeHandler.HandleCounter)
	r.Get("/challenges/{id}", s.challengeHandler.HandleGetChallenge)
	r.Get("/challenges/{id}/participants", s.challengeHandler.HandleParticipants)
	r.Get("/challenges/{id}/leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	r.Get("/challenges/{id}/rank/{account}", s.leaderboardHandler.HandleGetRank)
	r.Get("/withdrawals/{account}", s.challengeHandler.HandlePending)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(s.verifier))
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter))
		}

		r.Post("/identities", s.identityHandler.HandleMint)
		r.Post("/identities/{account}/transfer", s.identityHandler.HandleTransfer)
		r.Put("/admin/identities/{account}/stats", s.identityHandler.HandleUpdateStats)
		r.Post("/admin/reputation/sync", s.identityHandler.HandleSync)

		r.Post("/challenges", s.challengeHandler.HandleCreate)
		r.Post("/challenges/{id}/entries", s.challengeHandler.HandleEnter)
		r.Post("/challenges/{id}/scores", s.challengeHandler.HandleSubmitScore)
		r.Post("/challenges/{id}/finalize", s.challengeHandler.HandleFinalize)
		r.Post("/withdrawals", s.challengeHandler.HandleWithdraw)
	})

	for _, mount := range s.mounts {
		mount(r)
	}
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status its kind maps to.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusOf(err)
	msg := http.StatusText(status)
	var te *types.Error
	switch {
	case errors.As(err, &te):
		msg = te.Message
	case status < http.StatusInternalServerError:
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

func idParam(r *http.Request, op string) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, NewKind(op, ErrBadRequest)
	}
	return id, nil
}

func accountParam(r *http.Request) types.Account {
	return types.NewAccount(chi.URLParam(r, "account"))
}
