package server

import (
	"net/http"

	"github.com/jrsteele09/storefront-admin/server/guard"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// Storefront sign-in
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.StorefrontLoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.StorefrontLoginSubmissionHandler(), s.HTMLMiddleWare()...))

	// Admin login & logout. The login page sits behind the guard so it stalls while loading.
	s.RegisterRouteFunc("GET "+s.loginPath, ChainMiddleware(s.AdminLoginPageHandler(), s.HTMLMiddleWare(s.guard())...))
	s.RegisterRouteFunc("POST "+s.loginPath, ChainMiddleware(s.AdminLoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteAdminLogout, ChainMiddleware(s.AdminLogoutHandler(), s.HTMLMiddleWare()...))

	// Guarded admin pages
	s.RegisterRouteFunc("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.AdminMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAdminProducts, ChainMiddleware(s.AdminProductsHandler(), s.AdminMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAdminCategories, ChainMiddleware(s.AdminCategoriesHandler(), s.AdminMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAdminOrders, ChainMiddleware(s.AdminOrdersHandler(), s.AdminMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersHandler(), s.AdminMiddleware()...))
	// Unknown paths under /admin are still guarded before they 404
	s.RegisterRouteFunc("GET /admin/", ChainMiddleware(s.AdminNotFoundHandler(), s.AdminMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
}

func (s *Server) guard() func(http.HandlerFunc) http.HandlerFunc {
	return guard.Guard(s.store, s.loginPath, guard.WithMetrics(s.metrics), guard.WithLoadingHandler(s.LoadingHandler()))
}
