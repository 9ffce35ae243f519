// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/arena/internal/domain/types"
)

// Kind names an observable arena event.
type Kind string

const (
	KindIdentityMinted      Kind = "identity.minted"
	KindStatsUpdated        Kind = "identity.stats_updated"
	KindChallengeCreated    Kind = "challenge.created"
	KindParticipantEntered  Kind = "challenge.entered"
	KindScoreSubmitted      Kind = "challenge.score_submitted"
	KindChallengeFinalized  Kind = "challenge.finalized"
	KindWithdrawalProcessed Kind = "withdrawal.processed"
)

// Kinds lists every event kind in emission-lifecycle order.
func Kinds() []Kind {
	return []Kind{
		KindIdentityMinted,
		KindStatsUpdated,
		KindChallengeCreated,
		KindParticipantEntered,
		KindScoreSubmitted,
		KindChallengeFinalized,
		KindWithdrawalProcessed,
	}
}

// Event is emitted by the registry and the engine after a state change has
// been applied. Fields that do not apply to a kind are left zero.
type Event struct {
	ID          string        `json:"id"`
	Kind        Kind          `json:"kind"`
	At          time.Time     `json:"at"`
	Account     types.Account `json:"account,omitempty"`
	IdentityID  uint64        `json:"identity_id,omitempty"`
	ChallengeID uint64        `json:"challenge_id,omitempty"`
	Creator     types.Account `json:"creator,omitempty"`
	Winner      types.Account `json:"winner,omitempty"`
	EntryFee    int64         `json:"entry_fee,omitempty"`
	Duration    int64         `json:"duration,omitempty"`
	Amount      int64         `json:"amount,omitempty"`
	Score       int64         `json:"score,omitempty"`
	Rank        int           `json:"rank,omitempty"`
}

// NewEvent stamps a fresh event id.
func NewEvent(kind Kind, at time.Time) Event {
	return Event{ID: uuid.NewString(), Kind: kind, At: at.UTC()}
}
