package credentials

import (
	"context"
	"errors"
	"sync"
)

var ErrNoCredential = errors.New("no credential in session")

// Credential is what the backend needs to resolve "whose cart": the bearer token, plus
// the user key used by endpoints addressed per user (orders, finalize).
type Credential struct {
	Token   string `json:"token"`
	UserKey string `json:"user_key"`
}

func (c Credential) Empty() bool {
	return c.Token == ""
}

// Provider is queried on every remote call.
type Provider interface {
	Credential(ctx context.Context) (Credential, error)
	Clear(ctx context.Context) error
}

// Static holds a credential in memory. Useful for tools and tests.
type Static struct {
	mu   sync.RWMutex
	cred Credential
}

func NewStatic(cred Credential) *Static {
	return &Static{cred: cred}
}

func (s *Static) Credential(context.Context) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred.Empty() {
		return Credential{}, ErrNoCredential
	}
	return s.cred, nil
}

func (s *Static) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	return nil
}
