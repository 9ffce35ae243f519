package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/arena/internal/adapters/journal"
	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/token"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrMissingToken = errors.New("missing bearer token")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// Wrap prefixes err with op.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// WrapKind prefixes err with op and marks it with kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns kind prefixed with op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// statusOf maps an error to its HTTP status and machine-readable code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized, "missing_token"
	case errors.Is(err, token.ErrExpiredToken):
		return http.StatusUnauthorized, "expired_token"
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_token"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, journal.ErrDisabled):
		return http.StatusNotFound, "journal_disabled"
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrNotRegistered):
		return http.StatusNotFound, types.CodeOf(err)
	case errors.Is(err, types.ErrAlreadyRegistered):
		return http.StatusConflict, types.CodeOf(err)
	case errors.Is(err, types.ErrInvalidAccount):
		return http.StatusBadRequest, types.CodeOf(err)
	}

	switch types.KindOf(err) {
	case types.KindPrecondition:
		return http.StatusPreconditionFailed, types.CodeOf(err)
	case types.KindValidation:
		return http.StatusBadRequest, types.CodeOf(err)
	case types.KindStateConflict, types.KindResourceExhaustion:
		return http.StatusConflict, types.CodeOf(err)
	case types.KindAuthorization:
		return http.StatusForbidden, types.CodeOf(err)
	case types.KindExternal:
		return http.StatusBadGateway, types.CodeOf(err)
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
