package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/internal/config"
	"github.com/jrsteele09/go-space-rental/server/ui"
	"github.com/jrsteele09/go-space-rental/session"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	api      *apiclient.Client
	sessions session.Repo
	cookies  sessions.Store
	layout   templateExecutor
	// location interprets datetime-local form values
	location *time.Location
}

// New builds the web frontend. api is the unscoped backend client; each
// request gets a copy bound to its browser session's tokens.
func New(cfg config.Config, api *apiclient.Client, sessionRepo session.Repo, cookies sessions.Store) (*Server, error) {
	if api == nil {
		return nil, fmt.Errorf("[Server New] api client is required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("[Server New] session repo is required")
	}
	if cookies == nil {
		return nil, fmt.Errorf("[Server New] cookie store is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		api:      api,
		sessions: sessionRepo,
		cookies:  cookies,
		layout:   mustParseTemplate("dashboard_layout.html"),
		location: time.Local,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// NewCookieStore returns the signed cookie store that carries the session id.
// secure should be true whenever the site is served over https.
func NewCookieStore(cfg config.SessionConfig, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(cfg.GetSessionSecret())
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.GetSessionMaxAge().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Printf("[%-19s] %s\n", ui.Method(method), path)
}

func logError(method, path, error string) {
	log.Printf("[%-19s] %s %s\n", ui.Method(method), path, ui.Red+error+ui.ResetColor)
}
