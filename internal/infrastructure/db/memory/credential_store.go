// Package memory holds an in-process credential store for sessions that must
// not outlive the process.
package memory

import (
	"context"
	"sync"

	"github.com/medtrack/careportal/internal/core/domain"
)

// CredentialStore keeps the token+user pair in memory.
type CredentialStore struct {
	mu    sync.RWMutex
	creds domain.Credentials
	set   bool
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

func (s *CredentialStore) Save(_ context.Context, creds domain.Credentials) error {
	if !creds.Valid() {
		return domain.ErrIncompleteCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.set = true
	return nil
}

func (s *CredentialStore) Load(_ context.Context) (domain.Credentials, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.Credentials{}, false, nil
	}
	return s.creds, true, nil
}

func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = domain.Credentials{}
	s.set = false
	return nil
}

func (s *CredentialStore) ClearIfToken(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set || s.creds.Token != token {
		return false, nil
	}
	s.creds = domain.Credentials{}
	s.set = false
	return true, nil
}

func (s *CredentialStore) Ping(_ context.Context) error { return nil }
