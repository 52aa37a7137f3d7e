package usecase

import (
	"context"
	"fmt"
	"time"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	featuredCount   = 8
	recentSalesSize = 10
)

type Catalog struct {
	store Store
	cache CatalogCache
	now   func() time.Time
}

func NewCatalog(store Store, cache CatalogCache) *Catalog {
	return &Catalog{store: store, cache: cache, now: time.Now}
}

// Home returns the newest products and all categories, cached until a write
// touches the catalog.
func (c *Catalog) Home(ctx context.Context) (*HomeView, error) {
	if c.cache != nil {
		if v, ok, err := c.cache.GetHome(ctx); err == nil && ok {
			return v, nil
		}
	}
	ps, err := c.store.Products().List(ctx, ProductFilter{Sort: SortNewest, Limit: featuredCount})
	if err != nil {
		return nil, err
	}
	cats, err := c.Categories(ctx)
	if err != nil {
		return nil, err
	}
	v := &HomeView{Featured: newProductViews(ps), Categories: cats}
	if c.cache != nil {
		if err := c.cache.SetHome(ctx, v); err != nil {
			logging.FromCtx(ctx).Warn("home cache set failed", "err", err)
		}
	}
	return v, nil
}

func (c *Catalog) Categories(ctx context.Context) ([]CategoryView, error) {
	cats, err := c.store.Categories().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryView, 0, len(cats))
	for _, ct := range cats {
		out = append(out, CategoryView{ID: ct.ID, Name: ct.Name})
	}
	return out, nil
}

func (c *Catalog) ListProducts(ctx context.Context, f ProductFilter) ([]ProductView, error) {
	ps, err := c.store.Products().List(ctx, f)
	if err != nil {
		return nil, err
	}
	return newProductViews(ps), nil
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (ProductView, error) {
	p, err := c.store.Products().GetByID(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	return newProductView(*p), nil
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  string
	ImageURL    string // empty keeps the current image on update
}

func (c *Catalog) CreateProduct(ctx context.Context, sellerID string, in ProductInput) (ProductView, error) {
	p := &domain.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		SellerID:    sellerID,
		CategoryID:  in.CategoryID,
		CreatedAt:   c.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return ProductView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := c.store.Products().Create(ctx, p); err != nil {
		return ProductView{}, err
	}
	c.invalidateHome(ctx)
	return newProductView(*p), nil
}

// UpdateProduct edits a product owned by sellerID. Editing the price never
// touches existing cart lines: they keep their snapshot.
func (c *Catalog) UpdateProduct(ctx context.Context, sellerID, id string, in ProductInput) (ProductView, error) {
	p, err := c.ownedProduct(ctx, sellerID, id)
	if err != nil {
		return ProductView{}, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.CategoryID = in.CategoryID
	if in.ImageURL != "" {
		p.ImageURL = in.ImageURL
	}
	if err := p.Validate(); err != nil {
		return ProductView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := c.store.Products().Update(ctx, p); err != nil {
		return ProductView{}, err
	}
	c.invalidateHome(ctx)
	return newProductView(*p), nil
}

func (c *Catalog) DeleteProduct(ctx context.Context, sellerID, id string) error {
	if _, err := c.ownedProduct(ctx, sellerID, id); err != nil {
		return err
	}
	if err := c.store.Products().Delete(ctx, id); err != nil {
		return err
	}
	c.invalidateHome(ctx)
	return nil
}

func (c *Catalog) SellerProducts(ctx context.Context, sellerID string, f ProductFilter) ([]ProductView, error) {
	f.SellerID = sellerID
	return c.ListProducts(ctx, f)
}

type SellerDashboard struct {
	ProductCount int
	Revenue      decimal.Decimal
	UnitsSold    int
	RecentSales  []SaleLine
}

func (c *Catalog) Dashboard(ctx context.Context, sellerID string) (SellerDashboard, error) {
	n, err := c.store.Products().CountBySeller(ctx, sellerID)
	if err != nil {
		return SellerDashboard{}, err
	}
	sales, err := c.store.Orders().SalesBySeller(ctx, sellerID, 0)
	if err != nil {
		return SellerDashboard{}, err
	}
	d := SellerDashboard{ProductCount: n, Revenue: decimal.Zero}
	for _, s := range sales {
		d.Revenue = d.Revenue.Add(s.Price.Mul(decimal.NewFromInt(int64(s.Quantity))))
		d.UnitsSold += s.Quantity
	}
	if len(sales) > recentSalesSize {
		sales = sales[:recentSalesSize]
	}
	d.RecentSales = sales
	return d, nil
}

func (c *Catalog) ownedProduct(ctx context.Context, sellerID, id string) (*domain.Product, error) {
	p, err := c.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (c *Catalog) invalidateHome(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateHome(ctx); err != nil {
		logging.FromCtx(ctx).Warn("home cache invalidate failed", "err", err)
	}
}
