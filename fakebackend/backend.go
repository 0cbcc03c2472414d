// Package fakebackend is an in-memory stand-in for the space-rental REST API.
// It serves the same routes under /api with JWT access tokens and rotating
// refresh tokens, and lets tests inject failures and count calls.
package fakebackend

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/internal/config"
	"github.com/jrsteele09/go-space-rental/internal/errors"
)

type Config interface {
	config.BackendConfig
	config.CorsConfig
	GetEnv() string
}

type fault struct {
	status int
	detail string
}

type Backend struct {
	config     Config
	store      *store
	engine     *gin.Engine
	generation atomic.Int64

	mu     sync.Mutex
	faults map[string]fault // "METHOD /path" -> forced response
	calls  map[string]int   // "METHOD /path" -> count
}

func New(cfg Config) *Backend {
	b := &Backend{
		config: cfg,
		store:  newStore(),
		faults: make(map[string]fault),
		calls:  make(map[string]int),
	}
	b.engine = b.routes()
	return b
}

func (b *Backend) Handler() http.Handler {
	return b.engine
}

func callKey(method, path string) string {
	return method + " " + path
}

// Fail makes every following request to method+path answer with status and
// {"detail": detail} until ClearFaults is called. path is the request path,
// e.g. "/api/spaces".
func (b *Backend) Fail(method, path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[callKey(method, path)] = fault{status: status, detail: detail}
}

func (b *Backend) ClearFaults() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = make(map[string]fault)
}

// Calls returns how many requests reached method+path.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[callKey(method, path)]
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = make(map[string]int)
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (b *Backend) ExpireAccessTokens() {
	b.generation.Add(1)
}

// SeedUser registers a user with its own organization, as POST /auth/register
// would.
func (b *Backend) SeedUser(req apimodel.RegisterRequest) (apimodel.User, error) {
	u, _, err := b.store.register(req)
	return u, err
}

// SeedSpace adds a space to the first organization of the user with email.
func (b *Backend) SeedSpace(email string, req apimodel.CreateSpaceRequest) (apimodel.Space, error) {
	b.store.mu.RLock()
	id, ok := b.store.emailIDs[email]
	var orgID int64
	var err error
	if ok {
		orgID, err = b.store.activeOrgLocked(id)
	}
	b.store.mu.RUnlock()
	if !ok {
		return apimodel.Space{}, errors.Wrapf(errors.ErrUserNotFound, "seed space for %s", email)
	}
	if err != nil {
		return apimodel.Space{}, err
	}
	return b.store.createSpace(orgID, req), nil
}
