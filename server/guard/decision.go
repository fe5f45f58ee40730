// Package guard decides whether an admin page request is admitted, redirected to the
// login page or stalled behind a loading placeholder, based on the session state.
package guard

import (
	"strings"

	"github.com/jrsteele09/storefront-admin/sessions"
)

type Kind string

const (
	RenderLoading    Kind = "render_loading"
	RenderChildren   Kind = "render_children"
	Redirect         Kind = "redirect"
	RenderWithChrome Kind = "render_with_chrome"
)

// Decision is the outcome for one request. Location is only set for Redirect.
type Decision struct {
	Kind     Kind
	Location string
}

// Decide applies the guard rules in order: loading stalls, the login path is always
// reachable, anything short of an authenticated admin goes to the login path.
func Decide(state sessions.State, path, loginPath string) Decision {
	if state == nil || state.Status() == sessions.StatusLoading {
		return Decision{Kind: RenderLoading}
	}

	if IsLoginPath(path, loginPath) {
		return Decision{Kind: RenderChildren}
	}

	user, ok := sessions.UserOf(state)
	if !ok || !user.IsAdmin() {
		return Decision{Kind: Redirect, Location: loginPath}
	}

	return Decision{Kind: RenderWithChrome}
}

// IsLoginPath ignores a trailing slash on either side
func IsLoginPath(path, loginPath string) bool {
	return trimSlash(path) == trimSlash(loginPath)
}

func trimSlash(p string) string {
	if len(p) > 1 {
		return strings.TrimSuffix(p, "/")
	}
	return p
}
