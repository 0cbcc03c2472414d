package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/forms"
	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName string
	Error   string
	Email   string // Preserve email on error
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		panic("Failed to parse login template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			AppName: s.config.GetAppName(),
			Error:   r.URL.Query().Get("error"),
			Email:   r.URL.Query().Get("email"),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
		}
	}
}

// LoginSubmissionHandler processes the login form submission. The session is
// only touched once the backend has issued a token pair.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := forms.ParseLoginForm(r.PostForm)
		if fieldErrors := form.Validate(); len(fieldErrors) > 0 {
			s.renderLoginError(w, r, "Email and password are required", form.Email)
			return
		}

		// Anonymous client: a failed login must not reach the current session
		tokens, err := s.api.WithStore(apiclient.NewMemoryStore(nil)).Auth().Login(r.Context(), form.Request())
		if err != nil {
			log.Warn().Err(err).Str("email", form.Email).Msg("Login failed")
			s.renderLoginError(w, r, forms.LoginFailedMessage(err), form.Email)
			return
		}

		if err := s.saveLogin(w, r, form.Email, tokens); err != nil {
			log.Err(err).Msg("Failed to save login session")
			s.renderLoginError(w, r, forms.LoginFailedMessage(nil), form.Email)
			return
		}

		redirectSuccess(w, r, RouteDashboard)
	}
}

// LogoutHandler clears the session's tokens and cookie. No backend call is
// made.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sid := s.sessionID(r); sid != "" {
			if err := s.api.WithStore(s.tokenStore(sid)).Auth().Logout(r.Context()); err != nil {
				log.Err(err).Msg("Failed to clear session tokens")
			}
		}
		s.endSession(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}

// renderLoginError redirects to login page with an error message
func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, email string) {
	redirectURL := RouteLogin + "?error=" + url.QueryEscape(errorMsg)
	if email != "" {
		redirectURL += "&email=" + url.QueryEscape(email)
	}

	redirectSuccess(w, r, redirectURL)
}
