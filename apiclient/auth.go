package apiclient

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-space-rental/apimodel"
)

// AuthAPI wraps the /auth endpoints. Login and Register return the token
// pair without storing it; persisting the session is the caller's decision.
type AuthAPI struct {
	c *Client
}

func (a AuthAPI) Register(ctx context.Context, data apimodel.RegisterRequest) (*apimodel.TokenResponse, error) {
	var out apimodel.TokenResponse
	if err := a.c.call(ctx, http.MethodPost, "auth/register", nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a AuthAPI) Login(ctx context.Context, data apimodel.LoginRequest) (*apimodel.TokenResponse, error) {
	var out apimodel.TokenResponse
	if err := a.c.call(ctx, http.MethodPost, "auth/login", nil, data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges refreshToken explicitly. The interceptor does the same
// automatically on a 401.
func (a AuthAPI) Refresh(ctx context.Context, refreshToken string) (*apimodel.TokenResponse, error) {
	var out apimodel.TokenResponse
	if err := a.c.call(ctx, http.MethodPost, refreshPath, nil, apimodel.RefreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a AuthAPI) Me(ctx context.Context) (*apimodel.User, error) {
	var out apimodel.User
	if err := a.c.call(ctx, http.MethodGet, "auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout clears both stored tokens. No request is sent.
func (a AuthAPI) Logout(ctx context.Context) error {
	return a.c.store.Clear(ctx)
}
