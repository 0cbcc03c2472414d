package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/rs/zerolog/log"
)

// DashboardLayoutData is the model of dashboard_layout.html. Content is the
// page body, already rendered.
type DashboardLayoutData struct {
	AppName    string
	Email      string
	ActivePage string
	PageTitle  string
	Content    template.HTML
}

// renderDashboardPage renders content with data, then wraps it in the
// dashboard layout. activePage selects the highlighted sidebar entry.
func (s *Server) renderDashboardPage(w http.ResponseWriter, r *http.Request, status int, activePage, pageTitle string, content templateExecutor, data any) {
	var contentBuf strings.Builder
	if err := content.Execute(&contentBuf, data); err != nil {
		log.Err(err).Str("page", activePage).Msg("Failed to render content")
		http.Error(w, "Failed to render content", http.StatusInternalServerError)
		return
	}

	renderHTML(w, s.layout, status, DashboardLayoutData{
		AppName:    s.config.GetAppName(),
		Email:      emailFromContext(r.Context()),
		ActivePage: activePage,
		PageTitle:  pageTitle,
		Content:    template.HTML(contentBuf.String()),
	})
}

// OverviewPageData is the model of overview.html
type OverviewPageData struct {
	User  *apimodel.User
	Orgs  []apimodel.OrganizationMembership
	Error string
}

// DashboardHandler renders the overview page with the current user and the
// organizations they belong to.
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("overview.html")

	return func(w http.ResponseWriter, r *http.Request) {
		api := apiFromContext(r.Context())
		data := OverviewPageData{Error: r.URL.Query().Get("error")}

		user, err := api.Auth().Me(r.Context())
		if s.handleSessionEnded(w, r, err) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load current user")
		}
		data.User = user

		if user != nil {
			orgs, err := api.Orgs().List(r.Context())
			if s.handleSessionEnded(w, r, err) {
				return
			}
			if err != nil {
				log.Warn().Err(err).Msg("Failed to load organizations")
			}
			data.Orgs = orgs
		}

		s.renderDashboardPage(w, r, http.StatusOK, "overview", "Overview", tmpl, data)
	}
}
