package server

import (
	"net/http"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/forms"
	"github.com/rs/zerolog/log"
)

// RegisterPageData is the template model of the registration page. Password
// is never echoed back.
type RegisterPageData struct {
	AppName string
	Error   string
	Form    forms.RegisterForm
	Errors  forms.FieldErrors
}

// RegisterPageHandler renders the registration page (GET /register)
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		s.renderRegister(w, tmpl, http.StatusOK, RegisterPageData{Error: r.URL.Query().Get("error")})
	}
}

// RegisterSubmissionHandler creates the user and its organization, then logs
// the new user in.
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		form := forms.ParseRegisterForm(r.PostForm)
		data := RegisterPageData{Form: form}
		data.Form.Password = ""

		if fieldErrors := form.Validate(); len(fieldErrors) > 0 {
			data.Errors = fieldErrors
			s.renderRegister(w, tmpl, http.StatusUnprocessableEntity, data)
			return
		}

		tokens, err := s.api.WithStore(apiclient.NewMemoryStore(nil)).Auth().Register(r.Context(), form.Request())
		if err != nil {
			log.Warn().Err(err).Str("email", form.Email).Msg("Registration failed")
			data.Error = forms.RegistrationFailedMessage(err)
			s.renderRegister(w, tmpl, http.StatusOK, data)
			return
		}

		if err := s.saveLogin(w, r, form.Email, tokens); err != nil {
			log.Err(err).Msg("Failed to save registration session")
			data.Error = forms.RegistrationFailedMessage(nil)
			s.renderRegister(w, tmpl, http.StatusOK, data)
			return
		}

		redirectSuccess(w, r, RouteDashboard)
	}
}

func (s *Server) renderRegister(w http.ResponseWriter, tmpl templateExecutor, status int, data RegisterPageData) {
	data.AppName = s.config.GetAppName()
	renderHTML(w, tmpl, status, data)
}

// SlugHandler answers POST /api/slug with the slug derived from
// organization_name, as a plain text body.
func (s *Server) SlugHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(forms.Slugify(r.FormValue("organization_name"))))
	}
}
