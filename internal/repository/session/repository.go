package session

import (
	"context"
	"time"
)

// Record is a persisted identity delegation for one browser session, used for
// silent restore after a reload or a server restart.
type Record struct {
	ID        string
	Principal string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}
