package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/jrsteele09/go-space-rental/session"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	repo := session.NewInMemoryRepo()
	store := session.NewTokenStore(repo, "sid", time.Hour)

	t.Run("empty session has no token", func(t *testing.T) {
		tok, err := store.Token(ctx)
		require.NoError(t, err)
		require.Nil(t, tok)
	})

	t.Run("set creates the session", func(t *testing.T) {
		require.NoError(t, store.SetToken(ctx, &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"}))
		require.NoError(t, store.SetEmail(ctx, "test@example.com"))

		tok, err := store.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "a", tok.AccessToken)
		require.Equal(t, "r", tok.RefreshToken)

		sess, err := repo.Get(ctx, "sid")
		require.NoError(t, err)
		require.Equal(t, "test@example.com", sess.Email)
		require.False(t, sess.ExpiresAt.IsZero())
	})

	t.Run("set keeps session metadata", func(t *testing.T) {
		require.NoError(t, store.SetToken(ctx, &oauth2.Token{AccessToken: "a2", RefreshToken: "r2"}))
		sess, err := repo.Get(ctx, "sid")
		require.NoError(t, err)
		require.Equal(t, "a2", sess.AccessToken)
		require.Equal(t, "test@example.com", sess.Email)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		other := session.NewTokenStore(repo, "other", time.Hour)
		tok, err := other.Token(ctx)
		require.NoError(t, err)
		require.Nil(t, tok)
	})

	t.Run("clear removes both tokens", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		tok, err := store.Token(ctx)
		require.NoError(t, err)
		require.Nil(t, tok)
	})
}

func TestTokenStore_PersistsRefreshedPair(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apimodel.TokenResponse{AccessToken: "fresh", RefreshToken: "rotated", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(apimodel.User{ID: 1, Email: "test@example.com"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	repo := session.NewInMemoryRepo()
	store := session.NewTokenStore(repo, "sid", time.Hour)
	require.NoError(t, store.SetToken(ctx, &oauth2.Token{AccessToken: "stale", RefreshToken: "r"}))

	client, err := apiclient.New(srv.URL+"/api", nil)
	require.NoError(t, err)

	user, err := client.WithStore(store).Auth().Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "test@example.com", user.Email)

	sess, err := repo.Get(ctx, "sid")
	require.NoError(t, err)
	require.Equal(t, "fresh", sess.AccessToken)
	require.Equal(t, "rotated", sess.RefreshToken)
}
