// Package session keeps the API token pair of each browser session on the
// server side. The browser only ever holds a signed cookie with the session
// id; the tokens live in a Repo.
package session

import (
	"context"
	"time"
)

type Session struct {
	// Identity of the browser session, carried in the cookie
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`

	// Tokens issued by the backend. Both are cleared together.
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`

	// Session management
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

type Repo interface {
	Upsert(ctx context.Context, sessionID string, session Session) error
	Get(ctx context.Context, sessionID string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
}
