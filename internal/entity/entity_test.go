package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	items := []OrderItem{
		{ProductID: "A", Quantity: 2, Price: decimal.RequireFromString("100.00")},
		{ProductID: "B", Quantity: 1, Price: decimal.RequireFromString("50.00")},
	}
	assert.True(t, decimal.NewFromInt(250).Equal(ComputeTotal(items)))
	assert.True(t, ComputeTotal(nil).IsZero())
}

func TestFindItem(t *testing.T) {
	o := &Order{Items: []OrderItem{{ID: "i1", ProductID: "A", Quantity: 1}}}

	it, ok := o.FindItem("A")
	require.True(t, ok)
	it.Quantity = 3
	assert.Equal(t, 3, o.Items[0].Quantity)

	_, ok = o.FindItem("B")
	assert.False(t, ok)
	assert.True(t, o.HasItem("i1"))
	assert.False(t, o.HasItem("i2"))
}

func TestCents(t *testing.T) {
	cases := map[string]int64{
		"100.00": 10000,
		"0.01":   1,
		"19.995": 2000,
		"12.344": 1234,
	}
	for in, want := range cases {
		assert.Equal(t, want, Cents(decimal.RequireFromString(in)), in)
	}
}

func TestStatusOpen(t *testing.T) {
	assert.True(t, StatusPending.Open())
	assert.True(t, StatusAwaitingPayment.Open())
	assert.False(t, StatusCompleted.Open())
}

func TestProductValidate(t *testing.T) {
	valid := func() Product {
		return Product{Name: "Lamp", Description: "Desk lamp", Price: decimal.RequireFromString("0.01"), Stock: 0}
	}

	p := valid()
	assert.NoError(t, p.Validate())

	tests := []struct {
		name   string
		mutate func(*Product)
		want   error
	}{
		{"blank name", func(p *Product) { p.Name = "  " }, ErrMissingName},
		{"no description", func(p *Product) { p.Description = "" }, ErrMissingDetails},
		{"zero price", func(p *Product) { p.Price = decimal.Zero }, ErrInvalidPrice},
		{"negative stock", func(p *Product) { p.Stock = -1 }, ErrInvalidStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), tt.want)
		})
	}
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleCustomer.Can(CapCart, CapCheckout))
	assert.False(t, RoleCustomer.Can(CapCatalogManage))
	assert.True(t, RoleSeller.Can(CapCatalogManage))
	assert.False(t, RoleSeller.Can(CapUsersManage))
	assert.True(t, RoleAdmin.Can(CapUsersManage))
	assert.False(t, Role("GUEST").Can(CapCart))
	assert.True(t, RoleCustomer.Can())

	r, ok := ParseRole("SELLER")
	assert.True(t, ok)
	assert.Equal(t, RoleSeller, r)
	_, ok = ParseRole("seller")
	assert.False(t, ok)
}
