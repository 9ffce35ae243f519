// Package types contains common types used across the application
package types

import "strings"

// Account identifies a caller or recipient. Accounts are compared in their
// normalized (trimmed, lower-cased) form.
type Account string

// NewAccount normalizes raw into an Account.
func NewAccount(raw string) Account {
	return Account(strings.ToLower(strings.TrimSpace(raw)))
}

// IsZero reports whether a is the null account: empty, or a hex zero of any
// width with or without the 0x prefix ("0x0", "0x00...00", "0").
func (a Account) IsZero() bool {
	s := strings.TrimSpace(string(a))
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return strings.Trim(s, "0") == ""
}

func (a Account) String() string { return string(a) }

// Entry represents a leaderboard entry
type Entry struct {
	Rank    int     `json:"rank"`
	Account Account `json:"account"`
	Score   int64   `json:"score"`
}
