package server

// Route path constants. The admin login path itself comes from config.
const (
	RouteIndex = "/"

	// Storefront sign-in
	RouteLogin = "/login"

	// Admin Routes
	RouteAdminDashboard  = "/admin"
	RouteAdminProducts   = "/admin/products"
	RouteAdminCategories = "/admin/categories"
	RouteAdminOrders     = "/admin/orders"
	RouteAdminUsers      = "/admin/users"
	RouteAdminLogout     = "/admin/logout"

	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
