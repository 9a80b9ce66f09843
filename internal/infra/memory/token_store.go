package memory

import (
	"sync"

	"nexlearn-exam-client/internal/domain"
)

// TokenStore is an in-memory implementation of gateway.TokenStore. Credentials
// live only for the process lifetime; a restart requires re-authentication.
type TokenStore struct {
	mu     sync.RWMutex
	tokens domain.Tokens
	set    bool
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) Tokens() (domain.Tokens, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, s.set
}

func (s *TokenStore) SetTokens(tokens domain.Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.set = true
}

func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = domain.Tokens{}
	s.set = false
}
