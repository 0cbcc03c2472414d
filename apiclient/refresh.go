package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-space-rental/apimodel"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const refreshPath = "auth/refresh"

// renew is called once per request after its first 401. used is the pair the
// failed request was sent with.
//
// If the store already holds a different access token another request has
// renewed the session and that pair is reused. Otherwise the refresh token is
// exchanged exactly once; concurrent exchanges of the same refresh token are
// coalesced. Any failure tears the session down.
func (c *Client) renew(ctx context.Context, used *oauth2.Token, unauthorized error) (*oauth2.Token, error) {
	current, err := c.store.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read token store: %w", err)
	}
	if current != nil && current.AccessToken != "" && (used == nil || current.AccessToken != used.AccessToken) {
		log.Debug().Msg("apiclient: session renewed by a concurrent request")
		return current, nil
	}

	if current == nil || current.RefreshToken == "" {
		c.endSession(ctx)
		return nil, &SessionEndedError{Cause: unauthorized}
	}

	// The exchange is shared by every coalesced caller, so it must outlive the
	// one that started it. The http client timeout still bounds it.
	refreshCtx := context.WithoutCancel(ctx)
	refreshToken := current.RefreshToken
	v, err, shared := c.refreshes.Do(refreshToken, func() (any, error) {
		tok, err := c.exchange(refreshCtx, refreshToken)
		if err != nil {
			return nil, err
		}
		if err := c.store.SetToken(refreshCtx, tok); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
		return tok, nil
	})
	if err != nil {
		log.Debug().Err(err).Msg("apiclient: token refresh failed, clearing session")
		c.endSession(ctx)
		return nil, &SessionEndedError{Cause: err}
	}

	log.Debug().Bool("shared", shared).Msg("apiclient: token refreshed")
	return v.(*oauth2.Token), nil
}

// exchange posts the refresh token to /auth/refresh. It bypasses the
// interceptor: no bearer header, no retry.
func (c *Client) exchange(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	req, err := newRequest(http.MethodPost, refreshPath, nil, apimodel.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, nil), bytes.NewReader(req.body))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, readError(req, resp)
	}
	defer resp.Body.Close()

	var tr apimodel.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("refresh: decode body: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("refresh: response has no access token")
	}
	return tr.Token(), nil
}

func (c *Client) endSession(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("apiclient: failed to clear token store")
	}
}
