// Package access decides which callers hold the administrator role.
package access

import (
	"github.com/okian/arena/internal/domain/types"
)

// Policy answers role questions for a caller.
type Policy interface {
	// IsAdmin reports whether caller may run privileged operations.
	IsAdmin(caller types.Account) bool
}

// Func adapts a predicate to Policy.
type Func func(caller types.Account) bool

// IsAdmin implements Policy.
func (f Func) IsAdmin(caller types.Account) bool { return f(caller) }

// Static grants the administrator role to a fixed set of accounts.
type Static struct {
	admins map[types.Account]struct{}
}

// NewStatic builds a Static policy. Zero accounts are ignored.
func NewStatic(admins ...types.Account) *Static {
	s := &Static{admins: make(map[types.Account]struct{}, len(admins))}
	for _, a := range admins {
		a = types.NewAccount(string(a))
		if a.IsZero() {
			continue
		}
		s.admins[a] = struct{}{}
	}
	return s
}

// IsAdmin implements Policy.
func (s *Static) IsAdmin(caller types.Account) bool {
	if s == nil || caller.IsZero() {
		return false
	}
	_, ok := s.admins[types.NewAccount(string(caller))]
	return ok
}

// DenyAll is a Policy that never grants the administrator role.
var DenyAll Policy = Func(func(types.Account) bool { return false })
