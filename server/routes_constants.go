package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteLogout   = "/logout"

	// Dashboard Routes
	RouteDashboard         = "/dashboard"
	RouteSpaces            = "/dashboard/spaces"
	RouteSpacesList        = "/dashboard/spaces/list"
	RouteSpacesNew         = "/dashboard/spaces/new"
	RouteSpace             = "/dashboard/spaces/{id}"
	RouteSpaceDelete       = "/dashboard/spaces/{id}/delete"
	RouteSpaceReserve      = "/dashboard/spaces/{id}/reserve"
	RouteReservations      = "/dashboard/reservations"
	RouteReservationCancel = "/dashboard/reservations/{id}/cancel"

	// API Routes
	RouteAPISlug = "/api/slug"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
)

const contentTypeHTML = "text/html; charset=utf-8"

// spacePath fills the {id} of RouteSpace.
func spacePath(id int64) string {
	return RouteSpaces + "/" + formatID(id)
}
