package repository

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound     = errors.New("participant not found")
	ErrExists       = errors.New("participant already enrolled")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
