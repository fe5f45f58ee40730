package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering either login page
type LoginPageData struct {
	AppName    string
	Action     string
	Error      string
	Email      string // Preserve email on error
	SignedInAs string
}

// AdminLoginPageHandler displays the admin login form. It is reachable whatever the session state.
func (s *Server) AdminLoginPageHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("admin_login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			AppName: s.appName,
			Action:  s.loginPath,
			Error:   r.URL.Query().Get("error"),
			Email:   r.URL.Query().Get("email"),
		}
		if user, ok := s.currentUser(); ok {
			data.SignedInAs = user.DisplayName()
		}
		renderHTML(w, http.StatusOK, loginTmpl, data)
	}
}

// AdminLoginSubmissionHandler processes the admin login form
func (s *Server) AdminLoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credentials, problem := s.credentialsFromForm(r)
		if problem != "" {
			redirectWithError(w, r, s.loginPath, problem, credentials.Email)
			return
		}

		result := s.store.AdminLogin(r.Context(), credentials)
		if !result.Success {
			log.Info().Str("email", credentials.Email).Str("reason", result.Message).Msg("admin login refused")
			redirectWithError(w, r, s.loginPath, result.Message, credentials.Email)
			return
		}

		redirectSuccess(w, r, RouteAdminDashboard)
	}
}

// StorefrontLoginPageHandler displays the standard storefront sign-in form (GET /login)
func (s *Server) StorefrontLoginPageHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		renderHTML(w, http.StatusOK, loginTmpl, LoginPageData{
			AppName: s.appName,
			Action:  RouteLogin,
			Error:   r.URL.Query().Get("error"),
			Email:   r.URL.Query().Get("email"),
		})
	}
}

// StorefrontLoginSubmissionHandler signs in with the standard login. Role is not checked
// here; the admin pages turn non-admins back to the admin login.
func (s *Server) StorefrontLoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credentials, problem := s.credentialsFromForm(r)
		if problem != "" {
			redirectWithError(w, r, RouteLogin, problem, credentials.Email)
			return
		}

		result := s.store.Login(r.Context(), credentials)
		if !result.Success {
			redirectWithError(w, r, RouteLogin, result.Message, credentials.Email)
			return
		}

		redirectSuccess(w, r, RouteAdminDashboard)
	}
}

// AdminLogoutHandler ends the session and always lands on the admin login page
func (s *Server) AdminLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.store.Logout(context.WithoutCancel(r.Context()))
		redirectSuccess(w, r, s.loginPath)
	}
}
