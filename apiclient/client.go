// Package apiclient is the HTTP client for the space-rental REST backend.
//
// Every request carries the stored access token as a bearer credential. A 401
// on a first attempt triggers one refresh exchange followed by one resubmission
// of the original request; if no refresh token is stored or the exchange fails
// the stored pair is cleared and the caller receives ErrSessionEnded.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	contentTypeJSON = "application/json"
	defaultTimeout  = 10 * time.Second
)

// TokenStore holds the access/refresh pair of one session. Reads happen on
// every request; writes happen on login, register, refresh and logout.
type TokenStore interface {
	// Token returns the stored pair, or nil when nothing is stored.
	Token(ctx context.Context) (*oauth2.Token, error)
	SetToken(ctx context.Context, tok *oauth2.Token) error
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      TokenStore

	// shared between copies made by WithStore so that requests carrying the
	// same refresh token perform a single exchange
	refreshes *singleflight.Group
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a client for the API rooted at baseURL (e.g.
// "http://localhost:8000/api"). A nil store starts with an empty MemoryStore.
func New(baseURL string, store TokenStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[apiclient New] invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[apiclient New] base URL %q must be absolute", baseURL)
	}
	if store == nil {
		store = NewMemoryStore(nil)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
		refreshes:  &singleflight.Group{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithStore returns a copy of the client bound to another session's store.
func (c *Client) WithStore(store TokenStore) *Client {
	cp := *c
	cp.store = store
	return &cp
}

func (c *Client) Store() TokenStore {
	return c.store
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) Auth() AuthAPI {
	return AuthAPI{c: c}
}

func (c *Client) Orgs() OrgsAPI {
	return OrgsAPI{c: c}
}

func (c *Client) Spaces() SpacesAPI {
	return SpacesAPI{c: c}
}

func (c *Client) Reservations() ReservationsAPI {
	return ReservationsAPI{c: c}
}

// do sends req through the refresh interceptor and decodes a successful
// response body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req *request, out any) error {
	tok, err := c.store.Token(ctx)
	if err != nil {
		return fmt.Errorf("read token store: %w", err)
	}

	resp, err := c.send(ctx, req, tok)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && req.attempt == attemptInitial {
		req.attempt = attemptRetried
		unauthorized := readError(req, resp)

		tok, err = c.renew(ctx, tok, unauthorized)
		if err != nil {
			return err
		}
		if resp, err = c.send(ctx, req, tok); err != nil {
			return err
		}
	}

	return decodeResponse(req, resp, out)
}

// send performs one HTTP round trip for req, attaching tok when it carries an
// access token.
func (c *Client) send(ctx context.Context, req *request, tok *oauth2.Token) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), req.bodyReader())
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	if tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(httpReq)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	return resp, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(strings.Split(path, "/")...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func decodeResponse(req *request, resp *http.Response, out any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		return readError(req, resp)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", req.method, req.path, err)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode body: %w", req.method, req.path, err)
	}
	return nil
}
