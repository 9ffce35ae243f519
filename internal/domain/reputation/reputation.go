// Package reputation converts accumulated results into a single comparable score.
package reputation

import (
	"fmt"
	"math"
)

// Formula weights. FormulaDescription is rendered from these so the text
// always matches Calculate.
const (
	WinWeight           = 50
	ParticipationWeight = 5
	PointsDivisor       = 10
)

// Largest counts whose weighted term still fits in an int64.
const (
	MaxWins          = math.MaxInt64 / WinWeight
	MaxParticipation = math.MaxInt64 / ParticipationWeight
)

// Input holds the accumulated results of one account.
type Input struct {
	Wins          int64
	Participation int64
	ArenaPoints   int64
}

// Calculate returns wins*50 + participation*5 + arenaPoints/10 with floor
// division on the last term. Results beyond the int64 range saturate at
// math.MaxInt64 or math.MinInt64. It is pure and safe for concurrent use.
func Calculate(wins, participation, arenaPoints int64) int64 {
	r := satMul(wins, WinWeight)
	r = satAdd(r, satMul(participation, ParticipationWeight))
	return satAdd(r, floorDiv(arenaPoints, PointsDivisor))
}

// Of applies Calculate to in.
func Of(in Input) int64 {
	return Calculate(in.Wins, in.Participation, in.ArenaPoints)
}

// FormulaDescription restates the formula for client display.
func FormulaDescription() string {
	return fmt.Sprintf("reputation = wins * %d + participation * %d + arenaPoints / %d (integer division, rounded down)",
		WinWeight, ParticipationWeight, PointsDivisor)
}

// floorDiv rounds toward negative infinity; Go's / truncates toward zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// satMul multiplies a by a positive weight k.
func satMul(a, k int64) int64 {
	switch {
	case a > math.MaxInt64/k:
		return math.MaxInt64
	case a < math.MinInt64/k:
		return math.MinInt64
	}
	return a * k
}

func satAdd(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}
