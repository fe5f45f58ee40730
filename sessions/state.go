package sessions

import (
	"github.com/jrsteele09/storefront-admin/token"
	"github.com/jrsteele09/storefront-admin/users"
)

// Status is the coarse session status derived from a State
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
)

var allStatuses = []string{string(StatusUnauthenticated), string(StatusLoading), string(StatusAuthenticated)}

// State is one of Unauthenticated, Loading or Authenticated.
type State interface {
	Status() Status
	sealed()
}

// Unauthenticated: no tokens, no user
type Unauthenticated struct{}

// Loading: rehydration or a login call is in flight
type Loading struct{}

// Authenticated always carries both the resolved profile and the token pair it was resolved with.
type Authenticated struct {
	User   users.Profile
	Tokens token.Pair
}

func (Unauthenticated) Status() Status { return StatusUnauthenticated }
func (Loading) Status() Status         { return StatusLoading }
func (Authenticated) Status() Status   { return StatusAuthenticated }

func (Unauthenticated) sealed() {}
func (Loading) sealed()         {}
func (Authenticated) sealed()   {}

// newAuthenticated refuses to build an Authenticated state without a user and an access token
func newAuthenticated(user *users.Profile, tokens token.Pair) (Authenticated, bool) {
	if user == nil || user.Empty() || tokens.Empty() {
		return Authenticated{}, false
	}
	return Authenticated{User: *user, Tokens: tokens}, true
}

// UserOf returns the profile held by state, if it is Authenticated
func UserOf(state State) (users.Profile, bool) {
	if a, ok := state.(Authenticated); ok {
		return a.User, true
	}
	return users.Profile{}, false
}
