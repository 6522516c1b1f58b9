package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"farmsmart/internal/domain"
	"github.com/google/uuid"
)

// DevProvider signs delegations locally. The assertion is taken as the
// principal; an empty assertion mints a fresh one.
type DevProvider struct {
	issuer *Issuer
	ttl    time.Duration

	mu      sync.Mutex
	current Delegation
}

func NewDevProvider(issuer *Issuer, ttl time.Duration) *DevProvider {
	return &DevProvider{issuer: issuer, ttl: ttl}
}

func (p *DevProvider) Login(ctx context.Context, assertion string) (Delegation, error) {
	if err := ctx.Err(); err != nil {
		return Delegation{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.Live(p.issuer.now()) {
		return Delegation{}, domain.ErrAlreadyAuthenticated
	}
	principal := strings.TrimSpace(assertion)
	if principal == "" {
		principal = "dev-" + uuid.NewString()
	}
	d, err := p.issuer.Sign(principal, p.ttl)
	if err != nil {
		return Delegation{}, err
	}
	p.current = d
	return d, nil
}

func (p *DevProvider) Logout(context.Context) error {
	p.mu.Lock()
	p.current = Delegation{}
	p.mu.Unlock()
	return nil
}
