package orders

import (
	"context"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/query"
)

// Key is shared with checkout, which invalidates it after a payment.
var Key = query.Key{"orders"}

type authenticator interface {
	Require() (string, error)
}

type Service struct {
	client backend.Client
	auth   authenticator
	cache  *query.Cache
}

func New(client backend.Client, auth authenticator, cache *query.Cache) *Service {
	return &Service{client: client, auth: auth, cache: cache}
}

// History returns the caller's orders. The key carries the principal so a
// different identity never reads another's cached history.
func (s *Service) History(ctx context.Context) ([]domain.Order, error) {
	principal, err := s.auth.Require()
	if err != nil {
		return nil, err
	}
	return query.Fetch(ctx, s.cache, query.Key{Key[0], principal}, func(ctx context.Context) ([]domain.Order, error) {
		return s.client.GetOrders(ctx, principal)
	})
}
