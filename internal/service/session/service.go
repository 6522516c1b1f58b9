package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"farmsmart/internal/domain"
	"farmsmart/internal/identity"
	"farmsmart/internal/notify"
	sessionrepo "farmsmart/internal/repository/session"
	"go.uber.org/zap"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusLoggingIn  Status = "logging-in"
	StatusSuccess    Status = "success"
	StatusLoginError Status = "loginError"
)

// ErrLoginInProgress rejects a login or logout triggered while a login is
// pending.
var ErrLoginInProgress = errors.New("login already in progress")

const loginFailedMessage = "Login failed. Please try again."

type store interface {
	Save(ctx context.Context, rec sessionrepo.Record) error
	Get(ctx context.Context, id string) (*sessionrepo.Record, error)
	Delete(ctx context.Context, id string) error
}

type cache interface {
	Clear()
}

// Service owns one browser's identity. Everything else reads it through
// Current, Status and Subscribe, or uses it as a backend.Caller.
type Service struct {
	id       string
	provider identity.Provider
	issuer   *identity.Issuer
	store    store
	cache    cache
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	session domain.Session
	status  Status
	subs    map[int]func(domain.Session)
	nextSub int
}

// New creates a Service for the browser session id.
func New(id string, provider identity.Provider, issuer *identity.Issuer, st store, c cache, n notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		id:       id,
		provider: provider,
		issuer:   issuer,
		store:    st,
		cache:    c,
		notifier: n,
		logger:   logger.With(zap.String("sid", id)),
		now:      time.Now,
		status:   StatusIdle,
		subs:     make(map[int]func(domain.Session)),
	}
}

// Login runs the provider handshake. A provider that still holds a stale
// delegation gets exactly one logout and retry.
func (s *Service) Login(ctx context.Context, assertion string) (domain.Session, error) {
	s.mu.Lock()
	if s.status == StatusLoggingIn {
		s.mu.Unlock()
		return domain.Session{}, ErrLoginInProgress
	}
	if cur := s.currentLocked(); cur.Authenticated {
		s.mu.Unlock()
		return cur, nil
	}
	s.status = StatusLoggingIn
	s.mu.Unlock()

	d, err := s.provider.Login(ctx, assertion)
	if errors.Is(err, domain.ErrAlreadyAuthenticated) {
		s.logger.Info("identity provider holds a stale session, retrying login once")
		s.reset(ctx)
		if lerr := s.provider.Logout(ctx); lerr != nil {
			s.logger.Warn("provider logout before retry failed", zap.Error(lerr))
		}
		d, err = s.provider.Login(ctx, assertion)
	}
	if err != nil {
		s.mu.Lock()
		s.status = StatusLoginError
		s.mu.Unlock()
		s.logger.Warn("login failed", zap.Error(err))
		s.notifier.Error(loginFailedMessage)
		return domain.Session{}, fmt.Errorf("login: %w", err)
	}

	sess := domain.Session{Authenticated: true, Principal: d.Principal, Token: d.Token, ExpiresAt: d.ExpiresAt}
	s.mu.Lock()
	s.session = sess
	s.status = StatusSuccess
	// Anything cached while anonymous is stale for the new identity.
	s.cache.Clear()
	s.mu.Unlock()

	if err := s.store.Save(ctx, sessionrepo.Record{ID: s.id, Principal: d.Principal, Token: d.Token, ExpiresAt: d.ExpiresAt}); err != nil {
		s.logger.Warn("persist session failed", zap.Error(err))
	}
	s.logger.Info("logged in", zap.String("principal", d.Principal))
	s.publish(sess)
	return sess, nil
}

// Logout clears the identity and every cached query result together, so
// no fetch issued afterwards can observe data from the old identity. It is
// refused while a login is pending.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	pending := s.status == StatusLoggingIn
	s.mu.Unlock()
	if pending {
		return ErrLoginInProgress
	}
	if err := s.provider.Logout(ctx); err != nil {
		s.logger.Warn("provider logout failed", zap.Error(err))
	}
	s.reset(ctx)
	s.mu.Lock()
	s.status = StatusIdle
	s.mu.Unlock()
	s.logger.Info("logged out")
	return nil
}

func (s *Service) reset(ctx context.Context) {
	s.mu.Lock()
	was := s.session.Authenticated
	s.session = domain.Session{}
	s.cache.Clear()
	s.mu.Unlock()

	if err := s.store.Delete(ctx, s.id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("delete persisted session failed", zap.Error(err))
	}
	if was {
		s.publish(domain.Session{})
	}
}

// Restore silently re-establishes a persisted, unexpired delegation.
func (s *Service) Restore(ctx context.Context) (domain.Session, error) {
	rec, err := s.store.Get(ctx, s.id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, nil
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("restore session: %w", err)
	}

	d, err := s.issuer.Parse(rec.Token)
	if err != nil || d.Principal != rec.Principal || !d.Live(s.now()) {
		s.logger.Info("dropping unusable persisted session", zap.Error(err))
		if derr := s.store.Delete(ctx, s.id); derr != nil && !errors.Is(derr, domain.ErrNotFound) {
			s.logger.Warn("delete persisted session failed", zap.Error(derr))
		}
		return domain.Session{}, nil
	}

	sess := domain.Session{Authenticated: true, Principal: d.Principal, Token: d.Token, ExpiresAt: d.ExpiresAt}
	s.mu.Lock()
	s.session = sess
	s.status = StatusSuccess
	s.mu.Unlock()
	s.logger.Debug("session restored", zap.String("principal", d.Principal))
	s.publish(sess)
	return sess, nil
}

// Current returns the session, treating an expired delegation as logged out.
func (s *Service) Current() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Service) currentLocked() domain.Session {
	if !s.session.Authenticated || !s.now().Before(s.session.ExpiresAt) {
		return domain.Session{}
	}
	return s.session
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe registers fn for identity changes and returns a function that
// removes it.
func (s *Service) Subscribe(fn func(domain.Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) publish(sess domain.Session) {
	s.mu.Lock()
	fns := make([]func(domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(sess)
	}
}

// Require returns the principal or domain.ErrUnauthenticated.
func (s *Service) Require() (string, error) {
	cur := s.Current()
	if !cur.Authenticated {
		return "", domain.ErrUnauthenticated
	}
	return cur.Principal, nil
}

func (s *Service) Principal() string { return s.Current().Principal }

func (s *Service) Token() string { return s.Current().Token }
