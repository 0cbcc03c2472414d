package server

import (
	"net/http"
)

// IndexHandler sends the browser to the dashboard when its session holds
// tokens, otherwise to the login page.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sid := s.sessionID(r); sid != "" {
			tok, err := s.tokenStore(sid).Token(r.Context())
			if err == nil && tok != nil && tok.AccessToken != "" {
				redirectSuccess(w, r, RouteDashboard)
				return
			}
		}
		redirectSuccess(w, r, RouteLogin)
	}
}
