package usecase_test

import (
	"testing"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogHomeIsCached(t *testing.T) {
	f := newFixture(t)
	f.store.AddCategory(domain.Category{ID: "c1", Name: "Books"})
	f.product(t, "A", "Product A", "1", 1)

	v, err := f.catalog.Home(f.ctx)
	require.NoError(t, err)
	require.Len(t, v.Featured, 1)
	require.Len(t, v.Categories, 1)

	// served from cache: a raw store write is not visible until invalidation
	f.product(t, "B", "Product B", "2", 1)
	v, err = f.catalog.Home(f.ctx)
	require.NoError(t, err)
	assert.Len(t, v.Featured, 1)

	// catalog writes invalidate
	_, err = f.catalog.CreateProduct(f.ctx, "seller", usecase.ProductInput{
		Name: "Product C", Description: "c", Price: dec("3"), Stock: 1,
	})
	require.NoError(t, err)
	v, err = f.catalog.Home(f.ctx)
	require.NoError(t, err)
	assert.Len(t, v.Featured, 3)
}

func TestCatalogProductValidationAndOwnership(t *testing.T) {
	f := newFixture(t)
	f.user(t, "seller", domain.RoleSeller)
	f.user(t, "other", domain.RoleSeller)

	_, err := f.catalog.CreateProduct(f.ctx, "seller", usecase.ProductInput{Name: "Free", Description: "d", Price: decimal.Zero})
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
	_, err = f.catalog.CreateProduct(f.ctx, "seller", usecase.ProductInput{Name: "Neg", Description: "d", Price: dec("1"), Stock: -1})
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
	_, err = f.catalog.CreateProduct(f.ctx, "seller", usecase.ProductInput{Name: "", Description: "d", Price: dec("1")})
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)

	p, err := f.catalog.CreateProduct(f.ctx, "seller", usecase.ProductInput{
		Name: "Lamp", Description: "Desk lamp", Price: dec("0.01"), Stock: 3, ImageURL: "/img/lamp.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "seller", p.SellerID)

	_, err = f.catalog.UpdateProduct(f.ctx, "other", p.ID, usecase.ProductInput{Name: "x", Description: "y", Price: dec("1")})
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	assert.ErrorIs(t, f.catalog.DeleteProduct(f.ctx, "other", p.ID), usecase.ErrNotFound)

	up, err := f.catalog.UpdateProduct(f.ctx, "seller", p.ID, usecase.ProductInput{Name: "Lamp 2", Description: "Brighter", Price: dec("12.50"), Stock: 4})
	require.NoError(t, err)
	assert.Equal(t, "/img/lamp.png", up.ImageURL, "empty image keeps the current one")
	assert.True(t, dec("12.50").Equal(up.Price))

	require.NoError(t, f.catalog.DeleteProduct(f.ctx, "seller", p.ID))
	_, err = f.catalog.GetProduct(f.ctx, p.ID)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestCatalogDeleteProductInCartIsRefused(t *testing.T) {
	f := newFixture(t)
	f.scenarioCart(t, "u1")

	err := f.catalog.DeleteProduct(f.ctx, "seller", "A")
	assert.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestCatalogListFilters(t *testing.T) {
	f := newFixture(t)
	f.store.AddCategory(domain.Category{ID: "books", Name: "Books"})
	f.user(t, "seller", domain.RoleSeller)
	for _, in := range []usecase.ProductInput{
		{Name: "Go Book", Description: "Learn Go", Price: dec("30"), Stock: 2, CategoryID: "books"},
		{Name: "Rust Book", Description: "Learn Rust", Price: dec("40"), Stock: 0, CategoryID: "books"},
		{Name: "Mug", Description: "Gopher mug", Price: dec("10"), Stock: 9},
	} {
		_, err := f.catalog.CreateProduct(f.ctx, "seller", in)
		require.NoError(t, err)
	}

	names := func(f usecase.ProductFilter, c *usecase.Catalog, fx *fixture) []string {
		ps, err := c.ListProducts(fx.ctx, f)
		require.NoError(t, err)
		var out []string
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Go Book", "Rust Book"}, names(usecase.ProductFilter{CategoryID: "books"}, f.catalog, f))
	assert.ElementsMatch(t, []string{"Go Book", "Mug"}, names(usecase.ProductFilter{Search: "go"}, f.catalog, f))
	assert.ElementsMatch(t, []string{"Rust Book"}, names(usecase.ProductFilter{Stock: usecase.StockOut}, f.catalog, f))
	lo, hi := dec("20"), dec("35")
	assert.Equal(t, []string{"Go Book"}, names(usecase.ProductFilter{MinPrice: &lo, MaxPrice: &hi}, f.catalog, f))
	assert.Equal(t, []string{"Mug", "Go Book", "Rust Book"}, names(usecase.ProductFilter{Sort: usecase.SortPriceAsc}, f.catalog, f))
	assert.Equal(t, []string{"Rust Book", "Go Book"}, names(usecase.ProductFilter{Sort: usecase.SortPriceDesc, Limit: 2}, f.catalog, f))

	mine, err := f.catalog.SellerProducts(f.ctx, "seller", usecase.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestSellerDashboard(t *testing.T) {
	f := newFixture(t)
	f.scenarioCart(t, "u1")
	_, err := f.checkout.PlaceOrder(f.ctx, usecase.PlaceOrderInput{UserID: "u1", Address: "1 Main St"})
	require.NoError(t, err)

	// an open cart does not count as a sale
	f.user(t, "u2", domain.RoleCustomer)
	_, err = f.cart.Add(f.ctx, "u2", "A", 1)
	require.NoError(t, err)

	d, err := f.catalog.Dashboard(f.ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, 2, d.ProductCount)
	assert.Equal(t, 3, d.UnitsSold)
	assert.True(t, dec("250").Equal(d.Revenue), "got %s", d.Revenue)
	assert.Len(t, d.RecentSales, 2)

	empty, err := f.catalog.Dashboard(f.ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, empty.ProductCount)
	assert.True(t, empty.Revenue.IsZero())
}
