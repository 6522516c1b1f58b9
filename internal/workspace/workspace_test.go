package workspace

import (
	"context"
	"testing"
	"time"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/identity"
	sessionrepo "farmsmart/internal/repository/session"
	"farmsmart/internal/service/checkout"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(store sessionrepo.Repository) *Registry {
	issuer := identity.NewIssuer("test-secret")
	return NewRegistry(Dependencies{
		Backend:   backend.NewMemory(),
		Providers: func() identity.Provider { return identity.NewDevProvider(issuer, time.Hour) },
		Issuer:    issuer,
		Store:     store,
	}, time.Minute)
}

func TestResolve_ReusesAndReplacesIDs(t *testing.T) {
	r := newRegistry(sessionrepo.NewMemory())
	ctx := context.Background()

	a := r.Resolve(ctx, "")
	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)

	assert.Same(t, a, r.Resolve(ctx, a.ID))
	assert.NotEqual(t, "not-a-uuid", r.Resolve(ctx, "not-a-uuid").ID)
	assert.Equal(t, 2, r.Len())
}

func TestSweepThenRestore(t *testing.T) {
	store := sessionrepo.NewMemory()
	r := newRegistry(store)
	ctx := context.Background()

	ws := r.Resolve(ctx, "")
	_, err := ws.Session.Login(ctx, "farmer-1")
	require.NoError(t, err)

	r.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 0, r.Len())

	again := r.Resolve(ctx, ws.ID)
	assert.NotSame(t, ws, again)
	assert.Equal(t, "farmer-1", again.Session.Current().Principal)
	assert.True(t, again.Cart.IsEmpty())
}

func TestWorkspacesAreIsolated(t *testing.T) {
	r := newRegistry(sessionrepo.NewMemory())
	ctx := context.Background()

	a := r.Resolve(ctx, "")
	b := r.Resolve(ctx, "")
	_, err := a.Session.Login(ctx, "farmer-1")
	require.NoError(t, err)

	assert.True(t, a.Session.Current().Authenticated)
	assert.False(t, b.Session.Current().Authenticated)
}

func TestIdentityChangeDropsCartAndCheckout(t *testing.T) {
	r := newRegistry(sessionrepo.NewMemory())
	ctx := context.Background()
	ws := r.Resolve(ctx, "")

	_, err := ws.Session.Login(ctx, "farmer-a")
	require.NoError(t, err)
	require.NoError(t, ws.Cart.Add(domain.CartLine{ItemID: "seeds_storeitem", Name: "Seeds", UnitPrice: decimal.RequireFromString("45")}))
	require.NoError(t, ws.Checkout.OpenCart())
	_, err = ws.Checkout.Submit(ctx, domain.PaymentDetails{HolderName: "Alice A", CardNumber: "1", Expiry: "13/99", CVV: "x"})
	require.Error(t, err)
	require.Equal(t, checkout.StateFormOpen, ws.Checkout.State())
	require.Equal(t, "Alice A", ws.Checkout.View().Form.HolderName)

	require.NoError(t, ws.Session.Logout(ctx))
	_, err = ws.Session.Login(ctx, "farmer-b")
	require.NoError(t, err)

	assert.True(t, ws.Cart.IsEmpty())
	v := ws.Checkout.View()
	assert.Equal(t, checkout.StateIdle, v.State)
	assert.Empty(t, v.Form.HolderName)
	assert.Empty(t, v.Lines)
}

func TestAnonymousCartSurvivesLogin(t *testing.T) {
	r := newRegistry(sessionrepo.NewMemory())
	ctx := context.Background()
	ws := r.Resolve(ctx, "")

	require.NoError(t, ws.Cart.Add(domain.CartLine{ItemID: "seeds_storeitem", Name: "Seeds", UnitPrice: decimal.RequireFromString("45")}))
	_, err := ws.Session.Login(ctx, "farmer-a")
	require.NoError(t, err)
	assert.Equal(t, 1, ws.Cart.Count())

	require.NoError(t, ws.Session.Logout(ctx))
	assert.True(t, ws.Cart.IsEmpty())
}
