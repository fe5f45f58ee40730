package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/storefront-admin/api"
	"github.com/jrsteele09/storefront-admin/internal/config"
	"github.com/jrsteele09/storefront-admin/internal/metrics"
	"github.com/jrsteele09/storefront-admin/server/guard"
	"github.com/jrsteele09/storefront-admin/sessions"
	"github.com/rs/zerolog/log"
)

// SessionStore is what the HTTP surface needs from the session
type SessionStore interface {
	guard.StateSource
	Status() sessions.Status
	Login(ctx context.Context, credentials api.Credentials) sessions.Result
	AdminLogin(ctx context.Context, credentials api.Credentials) sessions.Result
	Logout(ctx context.Context)
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	appName   string
	loginPath string
	mux       *http.ServeMux
	routes    []string
	store     SessionStore
	metrics   *metrics.AppMetrics
	validate  *validator.Validate
	layout    *template.Template
}

func New(config config.Config, store SessionStore, appMetrics *metrics.AppMetrics) *Server {
	s := &Server{
		env:       config.GetEnv(),
		appName:   config.GetAppName(),
		loginPath: config.GetAdminLoginPath(),
		mux:       http.NewServeMux(),
		store:     store,
		metrics:   appMetrics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		layout:    mustParseTemplate("admin_layout.html"),
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}
