package apiclient

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore keeps a single token pair in process memory. It suits CLIs and
// tests; the web server binds each browser session to its own store instead.
type MemoryStore struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

func NewMemoryStore(tok *oauth2.Token) *MemoryStore {
	s := &MemoryStore{}
	if tok != nil {
		s.tok = copyToken(tok)
	}
	return s
}

func (s *MemoryStore) Token(_ context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return nil, nil
	}
	return copyToken(s.tok), nil
}

func (s *MemoryStore) SetToken(_ context.Context, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = copyToken(tok)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}

func copyToken(tok *oauth2.Token) *oauth2.Token {
	if tok == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	}
}
