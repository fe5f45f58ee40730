package server

import (
	"net/http"
)

// IndexHandler sends the root to the admin dashboard; the guard takes it from there
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, RouteAdminDashboard, http.StatusSeeOther)
	}
}
