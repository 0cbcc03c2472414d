package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-space-rental/apiclient"
	"github.com/jrsteele09/go-space-rental/internal/errors"
	"golang.org/x/oauth2"
)

var _ apiclient.TokenStore = (*TokenStore)(nil)

// TokenStore exposes one session of a Repo as an apiclient.TokenStore.
type TokenStore struct {
	repo      Repo
	sessionID string
	maxAge    time.Duration
}

// NewTokenStore binds sessionID in repo. A session created through SetToken
// expires after maxAge; zero means no expiry.
func NewTokenStore(repo Repo, sessionID string, maxAge time.Duration) *TokenStore {
	return &TokenStore{repo: repo, sessionID: sessionID, maxAge: maxAge}
}

func (s *TokenStore) SessionID() string {
	return s.sessionID
}

// Token returns nil when the session does not exist or holds no access token.
func (s *TokenStore) Token(ctx context.Context) (*oauth2.Token, error) {
	sess, err := s.repo.Get(ctx, s.sessionID)
	if errors.Is(err, errors.ErrSessionNotFound) || errors.Is(err, errors.ErrSessionExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.AccessToken == "" && sess.RefreshToken == "" {
		return nil, nil
	}
	return &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
	}, nil
}

func (s *TokenStore) SetToken(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return s.Clear(ctx)
	}

	now := time.Now()
	sess, err := s.repo.Get(ctx, s.sessionID)
	if err != nil {
		if !errors.Is(err, errors.ErrSessionNotFound) && !errors.Is(err, errors.ErrSessionExpired) {
			return err
		}
		sess = Session{ID: s.sessionID, CreatedAt: now}
		if s.maxAge > 0 {
			sess.ExpiresAt = now.Add(s.maxAge)
		}
	}

	sess.AccessToken = tok.AccessToken
	sess.RefreshToken = tok.RefreshToken
	sess.TokenType = tok.TokenType
	sess.UpdatedAt = now
	return s.repo.Upsert(ctx, s.sessionID, sess)
}

// SetEmail records who the session belongs to, for display.
func (s *TokenStore) SetEmail(ctx context.Context, email string) error {
	sess, err := s.repo.Get(ctx, s.sessionID)
	if err != nil {
		return err
	}
	sess.Email = email
	return s.repo.Upsert(ctx, s.sessionID, sess)
}

// Clear removes both tokens by dropping the session.
func (s *TokenStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.sessionID)
}
