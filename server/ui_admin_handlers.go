package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/storefront-admin/server/guard"
	"github.com/jrsteele09/storefront-admin/sessions"
	"github.com/jrsteele09/storefront-admin/users"
	"github.com/rs/zerolog/log"
)

// AdminPageData is what the admin layout and its content templates render
type AdminPageData struct {
	AppName    string
	ActivePage string
	PageTitle  string
	UserName   string
	Email      string
	Content    template.HTML
}

func (s *Server) currentUser() (users.Profile, bool) {
	return sessions.UserOf(s.store.State())
}

// renderAdminPage renders a page with the admin layout
func (s *Server) renderAdminPage(w http.ResponseWriter, r *http.Request, status int, activePage, pageTitle string, contentTmpl *template.Template) {
	// Set by the guard on admission
	user, ok := guard.UserFromContext(r.Context())
	if !ok || !guard.WithChrome(r.Context()) {
		redirectSuccess(w, r, s.loginPath)
		return
	}

	data := AdminPageData{
		AppName:    s.appName,
		ActivePage: activePage,
		PageTitle:  pageTitle,
		UserName:   user.DisplayName(),
		Email:      user.Email,
	}

	var contentBuf strings.Builder
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		log.Err(err).Str("template", contentTmpl.Name()).Msg("Failed to render content")
		http.Error(w, "Failed to render content", http.StatusInternalServerError)
		return
	}
	data.Content = template.HTML(contentBuf.String())

	renderHTML(w, status, s.layout, data)
}

func (s *Server) adminPage(activePage, pageTitle, contentTemplate string) http.HandlerFunc {
	contentTmpl := mustParseTemplate(contentTemplate)
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderAdminPage(w, r, http.StatusOK, activePage, pageTitle, contentTmpl)
	}
}

// AdminDashboardHandler renders the admin dashboard
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return s.adminPage("dashboard", "Dashboard", "admin_dashboard_content.html")
}

func (s *Server) AdminProductsHandler() http.HandlerFunc {
	return s.adminPage("products", "Products", "admin_products_content.html")
}

func (s *Server) AdminCategoriesHandler() http.HandlerFunc {
	return s.adminPage("categories", "Categories", "admin_categories_content.html")
}

func (s *Server) AdminOrdersHandler() http.HandlerFunc {
	return s.adminPage("orders", "Orders", "admin_orders_content.html")
}

func (s *Server) AdminUsersHandler() http.HandlerFunc {
	return s.adminPage("users", "Users", "admin_users_content.html")
}

// AdminNotFoundHandler answers unknown admin paths inside the layout
func (s *Server) AdminNotFoundHandler() http.HandlerFunc {
	contentTmpl := mustParseTemplate("admin_not_found_content.html")
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderAdminPage(w, r, http.StatusNotFound, "", "Not found", contentTmpl)
	}
}

// LoadingHandler is the placeholder shown while the session is still being resolved
func (s *Server) LoadingHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("loading.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderHTML(w, http.StatusOK, tmpl, map[string]any{"AppName": s.appName})
	}
}
