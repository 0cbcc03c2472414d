package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/internal/errors"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyAPI stores the backend client bound to the request's session
	ContextKeyAPI ContextKey = "api"
	// ContextKeySessionID stores the browser session id
	ContextKeySessionID ContextKey = "session_id"
	// ContextKeyEmail stores the email the session logged in with
	ContextKeyEmail ContextKey = "email"
)

// RequireSession is middleware for the dashboard routes. Requests whose
// session holds no access token are sent to the login page; the rest get a
// backend client bound to their session's tokens.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sid := s.sessionID(r)
			if sid == "" {
				redirectSuccess(w, r, RouteLogin)
				return
			}

			sess, err := s.sessions.Get(r.Context(), sid)
			if err != nil {
				if !errors.Is(err, errors.ErrSessionNotFound) && !errors.Is(err, errors.ErrSessionExpired) {
					log.Error().Err(err).Msg("Failed to load session")
				}
				redirectSuccess(w, r, RouteLogin)
				return
			}
			if sess.AccessToken == "" {
				redirectSuccess(w, r, RouteLogin)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAPI, s.api.WithStore(s.tokenStore(sid)))
			ctx = context.WithValue(ctx, ContextKeySessionID, sid)
			ctx = context.WithValue(ctx, ContextKeyEmail, sess.Email)
			next(w, r.WithContext(ctx))
		}
	}
}

// apiFromContext returns the session-bound client set by RequireSession.
func apiFromContext(ctx context.Context) *apiclient.Client {
	api, _ := ctx.Value(ContextKeyAPI).(*apiclient.Client)
	return api
}

func emailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(ContextKeyEmail).(string)
	return email
}
