package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/session"
	"github.com/rs/zerolog/log"
)

const (
	// sessionCookieName is the signed cookie that carries the session id
	sessionCookieName = "space_rental_session"
	sessionIDKey      = "sid"

	sessionEndedMessage = "Your session has ended. Please log in again."
)

// sessionID returns the id carried by the session cookie, or "".
func (s *Server) sessionID(r *http.Request) string {
	cookieSession, err := s.cookies.Get(r, sessionCookieName)
	if err != nil {
		return ""
	}
	sid, _ := cookieSession.Values[sessionIDKey].(string)
	return sid
}

// startSession issues a fresh session id, drops any session the browser
// held before, and writes the cookie. It must run before the response body.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if old := s.sessionID(r); old != "" {
		if err := s.sessions.Delete(r.Context(), old); err != nil {
			log.Warn().Err(err).Msg("Failed to drop previous session")
		}
	}

	// Get returns a new session alongside a decode error for stale cookies
	cookieSession, _ := s.cookies.Get(r, sessionCookieName)
	sid := uuid.NewString()
	cookieSession.Values[sessionIDKey] = sid
	if err := cookieSession.Save(r, w); err != nil {
		return "", err
	}
	return sid, nil
}

// endSession removes the stored tokens and expires the cookie.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if sid := s.sessionID(r); sid != "" {
		if err := s.sessions.Delete(r.Context(), sid); err != nil {
			log.Warn().Err(err).Msg("Failed to delete session")
		}
	}

	cookieSession, _ := s.cookies.Get(r, sessionCookieName)
	delete(cookieSession.Values, sessionIDKey)
	cookieSession.Options.MaxAge = -1
	if err := cookieSession.Save(r, w); err != nil {
		log.Warn().Err(err).Msg("Failed to expire session cookie")
	}
}

func (s *Server) tokenStore(sid string) *session.TokenStore {
	return session.NewTokenStore(s.sessions, sid, s.config.GetSessionMaxAge())
}

// saveLogin stores the token pair issued by login or register in a new
// session.
func (s *Server) saveLogin(w http.ResponseWriter, r *http.Request, email string, tokens *apimodel.TokenResponse) error {
	sid, err := s.startSession(w, r)
	if err != nil {
		return err
	}
	store := s.tokenStore(sid)
	if err := store.SetToken(r.Context(), tokens.Token()); err != nil {
		return err
	}
	return store.SetEmail(r.Context(), email)
}

// handleSessionEnded redirects to the login page when err means the backend
// session is gone. It reports whether it wrote a response.
func (s *Server) handleSessionEnded(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrSessionEnded) {
		return false
	}
	log.Info().Err(err).Str("path", r.URL.Path).Msg("Session ended")
	s.endSession(w, r)
	redirectWithError(w, r, RouteLogin, sessionEndedMessage)
	return true
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectSuccess(w, r, path+"?error="+url.QueryEscape(errorMsg))
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// pathID parses the {id} wildcard of the matched route.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
