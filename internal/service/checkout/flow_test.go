package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/notify"
	"farmsmart/internal/query"
	cartsvc "farmsmart/internal/service/cart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	backend.Client
	mu      sync.Mutex
	calls   int
	last    domain.CheckoutRequest
	order   *domain.Order
	err     error
	release chan struct{}
}

func (c *stubClient) Checkout(_ context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	c.mu.Lock()
	c.calls++
	c.last = req
	c.mu.Unlock()
	if c.release != nil {
		<-c.release
	}
	return c.order, c.err
}

type stubAuth struct{ principal string }

func (a stubAuth) Require() (string, error) {
	if a.principal == "" {
		return "", domain.ErrUnauthenticated
	}
	return a.principal, nil
}

type fixture struct {
	flow   *Flow
	client *stubClient
	cart   *cartsvc.Service
	cache  *query.Cache
	toasts *notify.Queue
}

func newFixture(t *testing.T, client *stubClient) fixture {
	t.Helper()
	q := notify.NewQueue(nil)
	c := query.New(nil)
	cart := cartsvc.New(q)
	return fixture{
		flow:   New(client, cart, stubAuth{principal: "farmer-1"}, c, q, nil),
		client: client,
		cart:   cart,
		cache:  c,
		toasts: q,
	}
}

func validDetails() domain.PaymentDetails {
	return domain.PaymentDetails{HolderName: "Amina Wanjiru", CardNumber: "4242 4242 4242 4242", Expiry: "12/29", CVV: "123"}
}

func TestSubmit_ShortCardNumberStaysOpenWithoutCall(t *testing.T) {
	fx := newFixture(t, &stubClient{})
	require.NoError(t, fx.cart.Add(domain.CartLine{ItemID: "seeds_storeitem", Name: "Seeds", UnitPrice: decimal.RequireFromString("45")}))
	require.NoError(t, fx.flow.OpenCart())

	d := validDetails()
	d.CardNumber = "4242-4242-4242-424"
	_, err := fx.flow.Submit(context.Background(), d)

	var fe domain.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Enter a valid 16-digit card number", fe["cardNumber"])
	assert.Len(t, fe, 1)
	assert.Equal(t, StateFormOpen, fx.flow.State())
	assert.Equal(t, 0, fx.client.calls)
	assert.Equal(t, "Enter a valid 16-digit card number", fx.flow.View().Errors["cardNumber"])
}

func TestSubmit_SuccessClearsCartAndConfirms(t *testing.T) {
	client := &stubClient{order: &domain.Order{Status: "confirmed", Total: decimal.RequireFromString("73.49"), ConfirmationNumber: "CONF123"}}
	fx := newFixture(t, client)
	require.NoError(t, fx.cart.Add(domain.CartLine{ItemID: "fertilizer_storeitem", Name: "Fertilizer", UnitPrice: decimal.RequireFromString("29.99")}))
	require.NoError(t, fx.cart.Add(domain.CartLine{ItemID: "soil_storeitem", Name: "Soil", UnitPrice: decimal.RequireFromString("43.50")}))
	fx.toasts.Drain()

	_, _ = query.Fetch(context.Background(), fx.cache, query.Key{"orders", "farmer-1"}, func(context.Context) ([]domain.Order, error) {
		return []domain.Order{}, nil
	})

	require.NoError(t, fx.flow.OpenCart())
	conf, err := fx.flow.Submit(context.Background(), validDetails())
	require.NoError(t, err)

	assert.Equal(t, "CONF123", conf.Number)
	assert.Equal(t, "$73.49", conf.DisplayTotal())
	assert.True(t, client.last.Total.Equal(decimal.RequireFromString("73.49")))
	assert.Equal(t, "************4242", client.last.PaymentMethod.CardNumber)
	assert.Equal(t, "***", client.last.PaymentMethod.CVV)
	assert.Len(t, client.last.Items, 2)

	assert.True(t, fx.cart.IsEmpty())
	assert.Equal(t, StateSucceeded, fx.flow.State())
	assert.False(t, fx.cache.Has(query.Key{"orders", "farmer-1"}))

	view := fx.flow.View()
	require.NotNil(t, view.Confirmation)
	assert.Equal(t, "CONF123", view.Confirmation.Number)

	toasts := fx.toasts.Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Payment successful! Order confirmed.", toasts[0].Message)
}

func TestSubmit_SingleItemKeepsStoreCart(t *testing.T) {
	client := &stubClient{order: &domain.Order{Total: decimal.RequireFromString("12"), ConfirmationNumber: "C1"}}
	fx := newFixture(t, client)
	require.NoError(t, fx.cart.Add(domain.CartLine{ItemID: "tools_storeitem", Name: "Tools", UnitPrice: decimal.RequireFromString("65")}))

	listing := domain.CropListing{ID: "l1", CropName: "Maize", PricePerUnit: decimal.RequireFromString("12"), Farmer: "farmer-2"}
	require.NoError(t, fx.flow.Open(SourceListing, []domain.CartLine{listing.Line()}))
	_, err := fx.flow.Submit(context.Background(), validDetails())
	require.NoError(t, err)

	assert.False(t, fx.cart.IsEmpty())
	require.Len(t, client.last.Items, 1)
	assert.Equal(t, int64(1), client.last.Items[0].Stock)
}

func TestSubmit_FailureReturnsToFormKeepingSafeFields(t *testing.T) {
	client := &stubClient{err: &backend.Error{Op: backend.OpCheckout, Err: errors.New("declined")}}
	fx := newFixture(t, client)
	require.NoError(t, fx.cart.Add(domain.CartLine{ItemID: "seeds_storeitem", Name: "Seeds", UnitPrice: decimal.RequireFromString("45")}))
	fx.toasts.Drain()
	require.NoError(t, fx.flow.OpenCart())

	_, err := fx.flow.Submit(context.Background(), validDetails())
	require.Error(t, err)

	view := fx.flow.View()
	assert.Equal(t, StateFormOpen, view.State)
	assert.Equal(t, StateFailed, view.LastOutcome)
	assert.Equal(t, "Amina Wanjiru", view.Form.HolderName)
	assert.Equal(t, "12/29", view.Form.Expiry)
	assert.False(t, fx.cart.IsEmpty())

	toasts := fx.toasts.Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, notify.LevelError, toasts[0].Level)
	assert.Equal(t, "Payment failed. Please try again.", toasts[0].Message)

	// A retry from the same dialog is allowed.
	client.err = nil
	client.order = &domain.Order{Total: decimal.RequireFromString("45"), ConfirmationNumber: "C2"}
	conf, err := fx.flow.Submit(context.Background(), validDetails())
	require.NoError(t, err)
	assert.Equal(t, "C2", conf.Number)
	assert.Equal(t, 2, client.calls)
}

func TestSubmit_OnlyOneCallInFlight(t *testing.T) {
	client := &stubClient{order: &domain.Order{ConfirmationNumber: "C1"}, release: make(chan struct{})}
	fx := newFixture(t, client)
	require.NoError(t, fx.flow.Open(SourceProduct, []domain.CartLine{{ItemID: "p1", Name: "Hoe", UnitPrice: decimal.RequireFromString("5")}}))

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.Submit(context.Background(), validDetails())
		done <- err
	}()

	require.Eventually(t, func() bool { return fx.flow.State() == StateSubmitting }, time.Second, time.Millisecond)

	_, err := fx.flow.Submit(context.Background(), validDetails())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, fx.flow.Close(), ErrSubmitInProgress)

	close(client.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.calls)
}

func TestOpen_RequiresIdentityAndLines(t *testing.T) {
	q := notify.NewQueue(nil)
	cart := cartsvc.New(q)
	anon := New(&stubClient{}, cart, stubAuth{}, query.New(nil), q, nil)
	assert.ErrorIs(t, anon.OpenCart(), domain.ErrUnauthenticated)

	fx := newFixture(t, &stubClient{})
	assert.ErrorIs(t, fx.flow.OpenCart(), ErrNothingToPay)
	assert.Equal(t, StateIdle, fx.flow.State())
}

func TestSubmitWithoutOpenIsRejected(t *testing.T) {
	fx := newFixture(t, &stubClient{})
	_, err := fx.flow.Submit(context.Background(), validDetails())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCloseAfterSuccessAllowsReopen(t *testing.T) {
	client := &stubClient{order: &domain.Order{ConfirmationNumber: "C1"}}
	fx := newFixture(t, client)
	line := domain.CartLine{ItemID: "p1", Name: "Hoe", UnitPrice: decimal.RequireFromString("5")}
	require.NoError(t, fx.flow.Open(SourceProduct, []domain.CartLine{line}))
	_, err := fx.flow.Submit(context.Background(), validDetails())
	require.NoError(t, err)

	require.NoError(t, fx.flow.Close())
	assert.Equal(t, StateIdle, fx.flow.State())
	assert.Nil(t, fx.flow.View().Confirmation)

	require.NoError(t, fx.flow.Open(SourceProduct, []domain.CartLine{line}))
	assert.Equal(t, StateFormOpen, fx.flow.State())
}

func TestSubmit_KeepsLinesAddedAfterOpen(t *testing.T) {
	client := &stubClient{order: &domain.Order{Total: decimal.RequireFromString("45"), ConfirmationNumber: "C1"}}
	fx := newFixture(t, client)
	seeds := domain.CartLine{ItemID: "seeds_storeitem", Name: "Seeds", UnitPrice: decimal.RequireFromString("45")}
	tools := domain.CartLine{ItemID: "tools_storeitem", Name: "Tools", UnitPrice: decimal.RequireFromString("65")}
	require.NoError(t, fx.cart.Add(seeds))
	require.NoError(t, fx.flow.OpenCart())

	require.NoError(t, fx.cart.Add(tools))
	require.NoError(t, fx.cart.Add(seeds))

	_, err := fx.flow.Submit(context.Background(), validDetails())
	require.NoError(t, err)
	require.Len(t, client.last.Items, 1)

	lines := fx.cart.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "seeds_storeitem", lines[0].ItemID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "tools_storeitem", lines[1].ItemID)
	assert.Equal(t, 1, lines[1].Quantity)
}

func TestReset_InFlightSubmissionDoesNotTouchFlowOrCart(t *testing.T) {
	client := &stubClient{order: &domain.Order{ConfirmationNumber: "C1"}, release: make(chan struct{})}
	fx := newFixture(t, client)
	require.NoError(t, fx.cart.Add(domain.CartLine{ItemID: "seeds_storeitem", Name: "Seeds", UnitPrice: decimal.RequireFromString("45")}))
	require.NoError(t, fx.flow.OpenCart())

	done := make(chan error, 1)
	go func() {
		_, err := fx.flow.Submit(context.Background(), validDetails())
		done <- err
	}()
	require.Eventually(t, func() bool { return fx.flow.State() == StateSubmitting }, time.Second, time.Millisecond)

	fx.flow.Reset()
	assert.Equal(t, StateIdle, fx.flow.State())

	close(client.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, fx.flow.State())
	assert.Nil(t, fx.flow.View().Confirmation)
	assert.Equal(t, 1, fx.cart.Count())
}
