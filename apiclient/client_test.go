package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	oldAccessToken  = "old-access-token"
	oldRefreshToken = "old-refresh-token"
	newAccessToken  = "new-access-token"
	newRefreshToken = "new-refresh-token"
)

// tokenBackend accepts only newAccessToken on /api/spaces and rotates
// oldRefreshToken into the new pair on /api/auth/refresh.
type tokenBackend struct {
	refreshCalls atomic.Int32
	spacesCalls  atomic.Int32
	refreshDelay time.Duration
	refreshFails bool

	mu          sync.Mutex
	authHeaders []string
	bodies      []string
}

func (b *tokenBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		time.Sleep(b.refreshDelay)

		var req apimodel.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if b.refreshFails || req.RefreshToken != oldRefreshToken {
			writeJSON(w, http.StatusUnauthorized, apimodel.ErrorResponse{Detail: "Invalid refresh token"})
			return
		}
		writeJSON(w, http.StatusOK, apimodel.TokenResponse{
			AccessToken:  newAccessToken,
			RefreshToken: newRefreshToken,
			TokenType:    "bearer",
		})
	})
	spaces := func(w http.ResponseWriter, r *http.Request) {
		b.spacesCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
		b.bodies = append(b.bodies, string(body))
		b.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+newAccessToken {
			writeJSON(w, http.StatusUnauthorized, apimodel.ErrorResponse{Detail: "Could not validate credentials"})
			return
		}
		if r.Method == http.MethodPost {
			writeJSON(w, http.StatusCreated, apimodel.Space{ID: 7, Name: "Created"})
			return
		}
		writeJSON(w, http.StatusOK, []apimodel.Space{{ID: 1, Name: "Conference Room A", Capacity: 10}})
	}
	mux.HandleFunc("GET /api/spaces", spaces)
	mux.HandleFunc("POST /api/spaces", spaces)
	return mux
}

func (b *tokenBackend) headers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler, tok *oauth2.Token) (*apiclient.Client, *apiclient.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := apiclient.NewMemoryStore(tok)
	c, err := apiclient.New(srv.URL+"/api", store)
	require.NoError(t, err)
	return c, store
}

func storedToken(t *testing.T, store apiclient.TokenStore) *oauth2.Token {
	t.Helper()
	tok, err := store.Token(context.Background())
	require.NoError(t, err)
	return tok
}

func TestNew_RejectsRelativeBaseURL(t *testing.T) {
	_, err := apiclient.New("/api", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be absolute")
}

func TestClient_AttachesBearerToken(t *testing.T) {
	b := &tokenBackend{}
	c, _ := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: newAccessToken, RefreshToken: oldRefreshToken})

	spaces, err := c.Spaces().List(context.Background(), 0, 0)

	require.NoError(t, err)
	require.Len(t, spaces, 1)
	require.Equal(t, []string{"Bearer " + newAccessToken}, b.headers())
	require.Zero(t, b.refreshCalls.Load())
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var header string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, apimodel.TokenResponse{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"})
	})
	c, store := newTestClient(t, h, nil)

	resp, err := c.Auth().Login(context.Background(), apimodel.LoginRequest{Email: "test@example.com", Password: "password123"})

	require.NoError(t, err)
	require.Equal(t, "a", resp.AccessToken)
	require.Empty(t, header)
	require.Nil(t, storedToken(t, store), "login must not persist tokens by itself")
}

func TestClient_RefreshesOnceAndResubmits(t *testing.T) {
	b := &tokenBackend{}
	c, store := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: oldAccessToken, RefreshToken: oldRefreshToken, TokenType: "bearer"})

	spaces, err := c.Spaces().List(context.Background(), 0, 0)

	require.NoError(t, err)
	require.Len(t, spaces, 1)
	require.EqualValues(t, 1, b.refreshCalls.Load(), "exactly one refresh exchange")
	require.EqualValues(t, 2, b.spacesCalls.Load(), "original request resubmitted exactly once")
	require.Equal(t, []string{"Bearer " + oldAccessToken, "Bearer " + newAccessToken}, b.headers())

	tok := storedToken(t, store)
	require.Equal(t, newAccessToken, tok.AccessToken)
	require.Equal(t, newRefreshToken, tok.RefreshToken)
}

func TestClient_ResubmitsSameBody(t *testing.T) {
	b := &tokenBackend{}
	c, _ := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: oldAccessToken, RefreshToken: oldRefreshToken})

	space, err := c.Spaces().Create(context.Background(), apimodel.CreateSpaceRequest{Name: "Room", Capacity: 4, PricePerHour: 12.5})

	require.NoError(t, err)
	require.Equal(t, "Created", space.Name)
	require.Len(t, b.bodies, 2)
	require.JSONEq(t, b.bodies[0], b.bodies[1])
	require.JSONEq(t, `{"name":"Room","capacity":4,"price_per_hour":12.5}`, b.bodies[1])
}

func TestClient_RefreshFailureClearsTokens(t *testing.T) {
	b := &tokenBackend{refreshFails: true}
	c, store := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: oldAccessToken, RefreshToken: oldRefreshToken})

	_, err := c.Spaces().List(context.Background(), 0, 0)

	require.Error(t, err)
	require.True(t, errors.Is(err, apiclient.ErrSessionEnded))
	require.Equal(t, "Invalid refresh token", apiclient.DetailOr(err, "fallback"))
	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.EqualValues(t, 1, b.spacesCalls.Load(), "no resubmission after a failed refresh")
	require.Nil(t, storedToken(t, store))
}

func TestClient_NoRefreshTokenClearsWithoutExchange(t *testing.T) {
	b := &tokenBackend{}
	c, store := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: oldAccessToken})

	_, err := c.Spaces().List(context.Background(), 0, 0)

	require.ErrorIs(t, err, apiclient.ErrSessionEnded)
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
	require.Equal(t, "Could not validate credentials", apiclient.DetailOr(err, "fallback"))
	require.Zero(t, b.refreshCalls.Load())
	require.Nil(t, storedToken(t, store))
}

func TestClient_UnauthorizedAfterRetryPassesThrough(t *testing.T) {
	var refreshCalls, calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, apimodel.TokenResponse{AccessToken: newAccessToken, RefreshToken: newRefreshToken, TokenType: "bearer"})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, apimodel.ErrorResponse{Detail: "Inactive token"})
	})
	c, store := newTestClient(t, mux, &oauth2.Token{AccessToken: oldAccessToken, RefreshToken: oldRefreshToken})

	_, err := c.Auth().Me(context.Background())

	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Inactive token", apiErr.Detail)
	require.False(t, errors.Is(err, apiclient.ErrSessionEnded))
	require.EqualValues(t, 1, refreshCalls.Load(), "refresh is never retried recursively")
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, newAccessToken, storedToken(t, store).AccessToken)
}

func TestClient_NonUnauthorizedErrorsPassThrough(t *testing.T) {
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("GET /api/spaces", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, apimodel.ErrorResponse{Detail: "Failed to fetch spaces"})
	})
	mux.HandleFunc("POST /api/spaces", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c, store := newTestClient(t, mux, &oauth2.Token{AccessToken: oldAccessToken, RefreshToken: oldRefreshToken})

	_, err := c.Spaces().List(context.Background(), 0, 0)
	require.Equal(t, http.StatusInternalServerError, apiclient.StatusCode(err))
	require.Equal(t, "Failed to fetch spaces", apiclient.DetailOr(err, "fallback"))

	_, err = c.Spaces().Create(context.Background(), apimodel.CreateSpaceRequest{Name: "x", Capacity: 1})
	require.Equal(t, http.StatusBadGateway, apiclient.StatusCode(err))
	require.Equal(t, "Failed to create space", apiclient.DetailOr(err, "Failed to create space"))

	require.Zero(t, refreshCalls.Load())
	require.Equal(t, oldAccessToken, storedToken(t, store).AccessToken)
}

func TestClient_ConcurrentUnauthorizedRequestsShareOneRefresh(t *testing.T) {
	b := &tokenBackend{refreshDelay: 50 * time.Millisecond}
	c, store := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: oldAccessToken, RefreshToken: oldRefreshToken})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Spaces().List(context.Background(), 0, 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.Equal(t, newRefreshToken, storedToken(t, store).RefreshToken)
}

func TestClient_CancelledCallerDoesNotEndSharedRefresh(t *testing.T) {
	b := &tokenBackend{refreshDelay: 300 * time.Millisecond}
	c, store := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: oldAccessToken, RefreshToken: oldRefreshToken})

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Spaces().List(ctx, 0, 0)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return b.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	secondErr := make(chan error, 1)
	go func() {
		_, err := c.Spaces().List(context.Background(), 0, 0)
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	require.NoError(t, <-secondErr)
	err := <-firstErr
	require.Error(t, err)
	require.False(t, errors.Is(err, apiclient.ErrSessionEnded))

	require.EqualValues(t, 1, b.refreshCalls.Load())
	tok := storedToken(t, store)
	require.NotNil(t, tok)
	require.Equal(t, newAccessToken, tok.AccessToken)
	require.Equal(t, newRefreshToken, tok.RefreshToken)
}

func TestClient_ListSendsPaging(t *testing.T) {
	var query string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		require.Equal(t, "/api/reservations", r.URL.Path)
		writeJSON(w, http.StatusOK, []apimodel.Reservation{})
	})
	c, _ := newTestClient(t, h, nil)

	reservations, err := c.Reservations().List(context.Background(), 20, 10)

	require.NoError(t, err)
	require.Empty(t, reservations)
	require.Equal(t, "limit=10&skip=20", query)
}

func TestClient_DeleteAcceptsEmptyBody(t *testing.T) {
	var path, method string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	})
	c, _ := newTestClient(t, h, &oauth2.Token{AccessToken: "a"})

	require.NoError(t, c.Spaces().Delete(context.Background(), 42))
	require.Equal(t, "/api/spaces/42", path)
	require.Equal(t, http.MethodDelete, method)
}

func TestOrgs_PathsAreEscaped(t *testing.T) {
	var paths []string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
	})
	c, _ := newTestClient(t, h, &oauth2.Token{AccessToken: "a"})

	_, err := c.Orgs().GetBySlug(context.Background(), "test-org")
	require.NoError(t, err)
	_, err = c.Orgs().Invite(context.Background(), 3, apimodel.InviteRequest{Email: "a@b.c", Role: apimodel.RoleMember})
	require.NoError(t, err)

	require.Equal(t, []string{"/api/orgs/test-org", "/api/orgs/3/invite"}, paths)
}

func TestAuth_LogoutClearsStore(t *testing.T) {
	c, store := newTestClient(t, http.NotFoundHandler(), &oauth2.Token{AccessToken: "a", RefreshToken: "r"})

	require.NoError(t, c.Auth().Logout(context.Background()))
	require.Nil(t, storedToken(t, store))
}

func TestClient_WithStoreIsolatesSessions(t *testing.T) {
	b := &tokenBackend{}
	c, first := newTestClient(t, b.handler(), &oauth2.Token{AccessToken: newAccessToken})
	second := apiclient.NewMemoryStore(nil)

	_, err := c.WithStore(second).Spaces().List(context.Background(), 0, 0)

	require.ErrorIs(t, err, apiclient.ErrSessionEnded)
	require.Equal(t, newAccessToken, storedToken(t, first).AccessToken)
	require.Same(t, second, c.WithStore(second).Store())
}

func TestDetailOr(t *testing.T) {
	require.Equal(t, "fallback", apiclient.DetailOr(errors.New("network down"), "fallback"))
	require.Equal(t, "fallback", apiclient.DetailOr(&apiclient.Error{StatusCode: 500}, "fallback"))
	require.Equal(t, "Space not found", apiclient.DetailOr(&apiclient.Error{StatusCode: 404, Detail: "Space not found"}, "fallback"))
}
