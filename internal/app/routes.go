package app

import (
	"net/url"
	"strings"
)

// Client-side routes.
const (
	RouteLogin    = "/login/"
	RouteLogout   = "/login/?logout=true"
	RouteRegister = "/register/"
	RouteMap      = "/map/"
	RouteMapAlias = "/api/map/"
	RouteEvents   = "/api/events/"
)

// route is a parsed client route.
type route struct {
	path   string
	logout bool
}

func parseRoute(raw string) route {
	u, err := url.Parse(raw)
	if err != nil {
		return route{path: RouteLogin}
	}
	p := u.Path
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	r := route{path: p, logout: u.Query().Get("logout") == "true"}
	switch p {
	case RouteLogin, RouteRegister, RouteMap, RouteEvents:
	case RouteMapAlias:
		r.path = RouteMap
	default:
		r.path = ""
	}
	return r
}

// needsSession reports whether the route is gated on a stored token.
func (r route) needsSession() bool {
	return r.path == RouteMap || r.path == RouteEvents
}
