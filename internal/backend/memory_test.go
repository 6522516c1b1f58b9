package backend

import (
	"context"
	"errors"
	"testing"

	"farmsmart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_OwnerIsCallerPrincipal(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.ForCaller(stubCaller{principal: "farmer-1"}).AddCropListing(ctx, domain.NewCropListing{
		CropName: "Maize", Quantity: 10, PricePerUnit: decimal.RequireFromString("3.2"), Location: "Eldoret",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	all, err := m.ForCaller(nil).GetCropListingsByLocation(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "farmer-1", all[0].Farmer)

	none, err := m.ForCaller(nil).GetCropListingsByLocation(ctx, "Kisumu")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemory_WritesNeedPrincipal(t *testing.T) {
	m := NewMemory()
	_, err := m.ForCaller(nil).AddProduct(context.Background(), domain.NewProduct{Name: "Hoe"})
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, OpAddProduct, be.Op)
}

func TestMemory_FailAndCalls(t *testing.T) {
	m := NewMemory()
	c := m.ForCaller(stubCaller{principal: "farmer-1"})
	boom := errors.New("boom")

	m.Fail(OpGetProfile, boom)
	_, err := c.GetCallerUserProfile(context.Background())
	require.ErrorIs(t, err, boom)

	m.Fail(OpGetProfile, nil)
	p, err := c.GetCallerUserProfile(context.Background())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 2, m.Calls(OpGetProfile))
}

func TestMemory_CheckoutRecordsOrder(t *testing.T) {
	m := NewMemory()
	m.SetConfirmation(func() string { return "CONF123" })
	c := m.ForCaller(stubCaller{principal: "farmer-1"})
	ctx := context.Background()

	order, err := c.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.StoreItem{{ID: "a", Name: "A", Stock: 2, Price: decimal.RequireFromString("1.5")}},
		Total: decimal.RequireFromString("3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "CONF123", order.ConfirmationNumber)
	assert.Equal(t, "farmer-1", order.UserID)

	orders, err := c.GetOrders(ctx, "farmer-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = c.GetOrders(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemory_RoleAssignment(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	admin := m.ForCaller(stubCaller{principal: "first"})

	require.NoError(t, admin.AssignCallerUserRole(ctx, "second", domain.RoleGuest))
	role, err := admin.GetCallerUserRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)

	second := m.ForCaller(stubCaller{principal: "second"})
	role, err = second.GetCallerUserRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, role)
	assert.Error(t, second.AssignCallerUserRole(ctx, "first", domain.RoleGuest))
}
