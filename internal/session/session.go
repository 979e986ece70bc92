package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/badge"
	"github.com/fjod/go_cart/storefront/internal/chat"
	"github.com/fjod/go_cart/storefront/internal/coordinator"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CookieName = "storefront_session"

	defaultIdleTimeout = 24 * time.Hour
)

// Backend is everything a session needs from the remote shop.
type Backend interface {
	coordinator.CartAPI
	coordinator.OrderAPI
	chat.Asker
	Login(ctx context.Context, email, password string) (backend.LoginResult, error)
}

type CredentialStore interface {
	Save(ctx context.Context, sessionID string, cred credentials.Credential) error
	For(sessionID string) credentials.Provider
}

type Deps struct {
	Backend     Backend
	Payments    coordinator.PaymentGateway
	Credentials CredentialStore
	Journal     coordinator.Journal // optional
	Sink        notify.Sink         // optional
	Logger      *zap.Logger
}

type Options struct {
	FinalizeStatus string
	SuccessDelay   time.Duration
	ChatKeywords   []string
	// IdleTimeout is how long an unused session stays in memory.
	IdleTimeout time.Duration
}

// Session bundles the per-visitor state. Nothing in it is shared with other sessions.
type Session struct {
	ID          string
	Credentials credentials.Provider
	Signal      *notify.Broadcaster
	Cart        *coordinator.Coordinator
	Badge       *badge.Counter
	Chat        *chat.Assistant
	Nav         *Navigator

	detach   func()
	lastSeen time.Time // guarded by Manager.mu
}

type Manager struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Deps, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	return &Manager{
		deps:     deps,
		opts:     opts,
		logger:   logger.OrNop(deps.Logger),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with a fresh id.
func (m *Manager) Create() *Session {
	s, _ := m.GetOrCreate(uuid.NewString())
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with the given id, building it when this process
// has not seen it yet. Credentials live in the store, so a known cookie survives a
// restart. Ids that are not UUIDs get a fresh session. Every call counts as
// activity for idle eviction.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = now
		return s, false
	}
	s := m.build(id)
	s.lastSeen = now
	m.sessions[id] = s
	m.logger.Debug("session created", zap.String("session_id", id))
	return s, true
}

func (m *Manager) build(id string) *Session {
	l := m.logger.With(zap.String("session_id", id))
	creds := m.deps.Credentials.For(id)
	signal := notify.NewBroadcaster(id, m.deps.Sink, l)
	nav := &Navigator{}

	cart := coordinator.New(coordinator.Deps{
		Cart:        m.deps.Backend,
		Orders:      m.deps.Backend,
		Payments:    m.deps.Payments,
		Credentials: creds,
		Navigator:   nav,
		Signal:      signal,
		Journal:     m.deps.Journal,
		Logger:      l,
	}, coordinator.Config{
		FinalizeStatus: m.opts.FinalizeStatus,
		SuccessDelay:   m.opts.SuccessDelay,
		SessionID:      id,
	})

	counter := badge.New(m.deps.Backend, creds, l)

	return &Session{
		ID:          id,
		Credentials: creds,
		Signal:      signal,
		Cart:        cart,
		Badge:       counter,
		Chat:        chat.New(m.deps.Backend, creds, signal, m.opts.ChatKeywords, l),
		Nav:         nav,
		detach:      counter.Attach(signal),
	}
}

// Login signs the session in and announces the new cart owner.
func (m *Manager) Login(ctx context.Context, s *Session, email, password string) (backend.LoginResult, error) {
	res, err := m.deps.Backend.Login(ctx, email, password)
	if err != nil {
		return backend.LoginResult{}, err
	}

	cred := credentials.Credential{Token: res.Token, UserKey: res.Email}
	if err := m.deps.Credentials.Save(ctx, s.ID, cred); err != nil {
		return backend.LoginResult{}, fmt.Errorf("save credential: %w", err)
	}

	m.logger.Info("session signed in",
		zap.String("session_id", s.ID),
		zap.String("email", res.Email))
	s.Signal.Publish()
	return res, nil
}

// Logout resets the cart view, drops the credential and forgets the session.
func (m *Manager) Logout(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return m.deps.Credentials.For(id).Clear(ctx)
	}

	s.Cart.Reset()
	s.Chat.Reset()
	err := s.Credentials.Clear(ctx)
	s.teardown()
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	m.logger.Info("session signed out", zap.String("session_id", id))
	return nil
}

// Deliver relays a cart-changed signal raised by another instance to the local
// listeners of that session. Unknown sessions are ignored.
func (m *Manager) Deliver(sessionID string) {
	if s, ok := m.Get(sessionID); ok {
		s.Signal.Notify()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the idle timeout and returns how
// many went. Credentials stay in the store, so a returning cookie signs back in.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.teardown()
	}
	if len(idle) > 0 {
		m.logger.Info("evicted idle sessions", zap.Int("count", len(idle)), zap.Int("remaining", m.Len()))
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Close tears down every session. Credentials stay in the store.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.teardown()
	}
}

func (s *Session) teardown() {
	if s.detach != nil {
		s.detach()
	}
	s.Cart.Close()
}
