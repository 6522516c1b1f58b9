package profile

import (
	"context"
	"strings"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/notify"
	"farmsmart/internal/query"
	"go.uber.org/zap"
)

// Key caches the caller's profile. Logout clears it with the rest of the cache.
var Key = query.Key{"currentUserProfile"}

type authenticator interface {
	Require() (string, error)
}

type Service struct {
	client   backend.Client
	auth     authenticator
	cache    *query.Cache
	notifier notify.Notifier
	logger   *zap.Logger
}

func New(client backend.Client, auth authenticator, cache *query.Cache, n notify.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, auth: auth, cache: cache, notifier: n, logger: logger}
}

// Profile returns the caller's profile, or nil when there is none. A failed
// fetch also reads as nil: the absence drives onboarding, not an error page.
// Failures stay out of the cache so the next read asks again.
func (s *Service) Profile(ctx context.Context) (*domain.UserProfile, error) {
	p, err := query.Fetch(ctx, s.cache, Key, s.client.GetCallerUserProfile)
	if err != nil {
		s.logger.Debug("profile fetch failed, treating as absent", zap.Error(err))
		return nil, nil
	}
	return p, nil
}

// NeedsOnboarding is true for an authenticated caller without a profile.
func (s *Service) NeedsOnboarding(ctx context.Context) (bool, error) {
	if _, err := s.auth.Require(); err != nil {
		return false, nil
	}
	p, err := s.Profile(ctx)
	if err != nil {
		return false, err
	}
	return p == nil, nil
}

func Validate(p domain.UserProfile) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if strings.TrimSpace(p.Username) == "" {
		errs["username"] = "Name is required"
	}
	if strings.TrimSpace(p.Location) == "" {
		errs["location"] = "Location is required"
	}
	return errs
}

func (s *Service) Save(ctx context.Context, p domain.UserProfile) error {
	if _, err := s.auth.Require(); err != nil {
		return err
	}
	if err := Validate(p).Err(); err != nil {
		return err
	}
	p.Username = strings.TrimSpace(p.Username)
	p.Location = strings.TrimSpace(p.Location)
	if err := s.client.SaveCallerUserProfile(ctx, p); err != nil {
		s.logger.Warn("save profile failed", zap.Error(err))
		s.notifier.Error("Failed to save profile. Please try again.")
		return err
	}
	s.cache.Invalidate(Key)
	s.notifier.Success("Profile saved! Welcome to FarmSmart.")
	return nil
}

func (s *Service) Role(ctx context.Context) (domain.UserRole, error) {
	if _, err := s.auth.Require(); err != nil {
		return domain.RoleGuest, nil
	}
	return s.client.GetCallerUserRole(ctx)
}

func (s *Service) AssignRole(ctx context.Context, user string, role string) error {
	if _, err := s.auth.Require(); err != nil {
		return err
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return domain.FieldErrors{"user": "User is required"}
	}
	r, err := domain.ParseUserRole(role)
	if err != nil {
		return domain.FieldErrors{"role": "Role must be admin, user or guest"}
	}
	if err := s.client.AssignCallerUserRole(ctx, user, r); err != nil {
		s.logger.Warn("assign role failed", zap.String("user", user), zap.Error(err))
		return err
	}
	s.logger.Info("role assigned", zap.String("user", user), zap.String("role", string(r)))
	return nil
}
