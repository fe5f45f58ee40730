package guard

import (
	"context"
	"html/template"
	"net/http"

	"github.com/jrsteele09/storefront-admin/internal/metrics"
	"github.com/jrsteele09/storefront-admin/sessions"
	"github.com/jrsteele09/storefront-admin/users"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	contextKeyUser   contextKey = "guard_user"
	contextKeyChrome contextKey = "guard_chrome"
)

// LoadingRefreshSeconds is how long the placeholder waits before the browser asks again
const LoadingRefreshSeconds = "1"

// StateSource is the part of the session store the guard reads
type StateSource interface {
	State() sessions.State
}

type options struct {
	metrics *metrics.AppMetrics
	loading http.HandlerFunc
}

type Option func(*options)

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLoadingHandler replaces the built-in placeholder page. The Refresh header is set before it runs.
func WithLoadingHandler(h http.HandlerFunc) Option {
	return func(o *options) {
		o.loading = h
	}
}

// Guard returns middleware that applies Decide to every request against the store's current state.
func Guard(store StateSource, loginPath string, opts ...Option) func(http.HandlerFunc) http.HandlerFunc {
	o := options{loading: defaultLoadingHandler}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state := store.State()
			decision := Decide(state, r.URL.Path, loginPath)
			o.metrics.ObserveGuardDecision(string(decision.Kind))

			switch decision.Kind {
			case RenderLoading:
				w.Header().Set("Refresh", LoadingRefreshSeconds)
				w.Header().Set("Cache-Control", "no-store")
				o.loading(w, r)
			case Redirect:
				log.Debug().Str("path", r.URL.Path).Str("status", string(state.Status())).Msg("guard: redirecting to login")
				redirect(w, r, decision.Location)
			case RenderChildren:
				next(w, r)
			case RenderWithChrome:
				user, _ := sessions.UserOf(state)
				ctx := context.WithValue(r.Context(), contextKeyUser, user)
				ctx = context.WithValue(ctx, contextKeyChrome, true)
				next(w, r.WithContext(ctx))
			}
		}
	}
}

// UserFromContext returns the admin admitted by the guard
func UserFromContext(ctx context.Context) (users.Profile, bool) {
	user, ok := ctx.Value(contextKeyUser).(users.Profile)
	return user, ok
}

// WithChrome reports whether the request was admitted to render inside the admin navigation
func WithChrome(ctx context.Context) bool {
	chrome, _ := ctx.Value(contextKeyChrome).(bool)
	return chrome
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

var loadingPage = template.Must(template.New("loading").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Loading</title></head>
<body><p>Checking your session&hellip;</p></body>
</html>
`))

func defaultLoadingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = loadingPage.Execute(w, nil)
}
