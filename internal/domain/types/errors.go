package types

import "errors"

// Kind classifies a failure independently of the concrete error.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindValidation
	KindStateConflict
	KindAuthorization
	KindResourceExhaustion
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition_violation"
	case KindValidation:
		return "validation_failure"
	case KindStateConflict:
		return "state_conflict"
	case KindAuthorization:
		return "authorization_failure"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindExternal:
		return "external_failure"
	default:
		return "unknown"
	}
}

// Error is a classified arena failure. Sentinels below are compared with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Precondition violations.
var (
	ErrRequiresIdentity  = newError(KindPrecondition, "requires_identity", "caller holds no identity record")
	ErrAlreadyRegistered = newError(KindPrecondition, "already_registered", "account already holds an identity record")
	ErrNotRegistered     = newError(KindPrecondition, "not_registered", "account holds no identity record")
	ErrInvalidAccount    = newError(KindPrecondition, "invalid_account", "account is null")
	ErrNotFound          = newError(KindPrecondition, "not_found", "not found")
	ErrNotParticipant    = newError(KindPrecondition, "not_participant", "caller has not entered the challenge")
)

// Validation failures.
var (
	ErrInvalidEntryFee = newError(KindValidation, "invalid_entry_fee", "entry fee must be positive")
	ErrInvalidDuration = newError(KindValidation, "invalid_duration", "duration out of bounds")
	ErrInvalidScore    = newError(KindValidation, "invalid_score", "score must be positive")
	ErrIncorrectFee    = newError(KindValidation, "incorrect_fee", "paid amount does not match entry fee")
	ErrInvalidStats    = newError(KindValidation, "invalid_stats", "stats must not be negative")
	ErrAmountOverflow  = newError(KindValidation, "amount_overflow", "amount exceeds the supported range")
)

// State conflicts.
var (
	ErrAlreadyEntered    = newError(KindStateConflict, "already_entered", "caller already entered the challenge")
	ErrScoreMustIncrease = newError(KindStateConflict, "score_must_increase", "score must exceed the previous submission")
	ErrExpired           = newError(KindStateConflict, "expired", "challenge window has closed")
	ErrFinalized         = newError(KindStateConflict, "finalized", "challenge is finalized")
	ErrStillActive       = newError(KindStateConflict, "still_active", "challenge window is still open")
	ErrAlreadyFinalized  = newError(KindStateConflict, "already_finalized", "challenge already finalized")
	ErrReentrant         = newError(KindStateConflict, "reentrant", "operation already in flight for caller")
)

// Authorization failures.
var (
	ErrUnauthorized    = newError(KindAuthorization, "unauthorized", "caller lacks the required role")
	ErrNonTransferable = newError(KindAuthorization, "non_transferable", "identity records cannot be transferred")
)

// Resource exhaustion and external failures.
var (
	ErrNothingToWithdraw = newError(KindResourceExhaustion, "nothing_to_withdraw", "no pending balance")
	ErrTransferFailed    = newError(KindExternal, "transfer_failed", "outgoing transfer failed")
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the machine-readable code of err, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}
