// Package workspace keeps the client state of each browser: identity, cart,
// checkout dialog, query cache and pending toasts.
package workspace

import (
	"context"
	"sync"
	"time"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/identity"
	"farmsmart/internal/notify"
	"farmsmart/internal/query"
	sessionrepo "farmsmart/internal/repository/session"
	"farmsmart/internal/service/advisory"
	"farmsmart/internal/service/cart"
	"farmsmart/internal/service/checkout"
	"farmsmart/internal/service/listing"
	"farmsmart/internal/service/orders"
	"farmsmart/internal/service/profile"
	"farmsmart/internal/service/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Facade hands out backend views bound to one caller. Both backend.HTTP and
// backend.Memory satisfy it.
type Facade interface {
	ForCaller(c backend.Caller) backend.Client
}

type Dependencies struct {
	Backend   Facade
	Providers func() identity.Provider
	Issuer    *identity.Issuer
	Store     sessionrepo.Repository
	Logger    *zap.Logger
}

type Workspace struct {
	ID       string
	Session  *session.Service
	Cart     *cart.Service
	Checkout *checkout.Flow
	Listings *listing.Service
	Profile  *profile.Service
	Advisory *advisory.Service
	Orders   *orders.Service
	Cache    *query.Cache
	Toasts   *notify.Queue

	mu       sync.Mutex
	lastSeen time.Time
	owner    string
}

func newWorkspace(id string, deps Dependencies) *Workspace {
	logger := deps.Logger.With(zap.String("sid", id))
	cache := query.New(logger.Named("query"))
	toasts := notify.NewQueue(logger.Named("toast"))
	sess := session.New(id, deps.Providers(), deps.Issuer, deps.Store, cache, toasts, logger.Named("session"))
	client := deps.Backend.ForCaller(sess)
	carts := cart.New(toasts)

	ws := &Workspace{
		ID:       id,
		Session:  sess,
		Cart:     carts,
		Checkout: checkout.New(client, carts, sess, cache, toasts, logger.Named("checkout")),
		Listings: listing.New(client, sess, cache, toasts, logger.Named("listing")),
		Profile:  profile.New(client, sess, cache, toasts, logger.Named("profile")),
		Advisory: advisory.New(client, sess, logger.Named("advisory")),
		Orders:   orders.New(client, sess, cache),
		Cache:    cache,
		Toasts:   toasts,
	}
	sess.Subscribe(ws.identityChanged)
	return ws
}

// identityChanged drops the cart and the payment dialog once an
// authenticated principal goes away, logout included. A cart filled while
// anonymous carries over into the first login.
func (w *Workspace) identityChanged(s domain.Session) {
	w.mu.Lock()
	prev := w.owner
	w.owner = s.Principal
	w.mu.Unlock()
	if prev == "" || prev == s.Principal {
		return
	}
	w.Cart.Clear()
	w.Checkout.Reset()
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}

// Registry maps browser session ids to workspaces. Workspaces idle for longer
// than the configured period are dropped; their persisted identity survives
// and is restored on the next request.
type Registry struct {
	deps Dependencies
	idle time.Duration
	now  func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace
}

func NewRegistry(deps Dependencies, idle time.Duration) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{deps: deps, idle: idle, now: time.Now, items: make(map[string]*Workspace)}
}

// Resolve returns the workspace for id, creating and restoring it when
// needed. Ids that are not UUIDs are replaced by a fresh one; callers must
// use the returned workspace's ID.
func (r *Registry) Resolve(ctx context.Context, id string) *Workspace {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	ws, ok := r.items[id]
	r.mu.Unlock()
	if ok {
		ws.touch(r.now())
		return ws
	}

	fresh := newWorkspace(id, r.deps)
	if _, err := fresh.Session.Restore(ctx); err != nil {
		r.deps.Logger.Warn("session restore failed", zap.String("sid", id), zap.Error(err))
	}

	r.mu.Lock()
	if existing, ok := r.items[id]; ok {
		ws = existing
	} else {
		r.items[id] = fresh
		ws = fresh
	}
	r.mu.Unlock()
	ws.touch(r.now())
	return ws
}

// Sweep drops idle workspaces and reports how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, ws := range r.items {
		if ws.idleSince(now) > r.idle {
			delete(r.items, id)
			n++
		}
	}
	if n > 0 {
		r.deps.Logger.Debug("swept idle workspaces", zap.Int("removed", n), zap.Int("remaining", len(r.items)))
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
