package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const maxListLimit = 100

type CatalogHandler struct {
	catalog *usecase.Catalog
}

func NewCatalogHandler(catalog *usecase.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GET /v1/home
func (h *CatalogHandler) Home(c *gin.Context) {
	v, err := h.catalog.Home(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /v1/categories
func (h *CatalogHandler) Categories(c *gin.Context) {
	cats, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

// GET /v1/products?category=&q=&stock=in_stock|out_of_stock&min_price=&max_price=&sort=&limit=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	f, err := parseProductFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	ps, err := h.catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": ps})
}

// GET /v1/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type productReq struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId"`
	ImageURL    string          `json:"imageUrl"`
}

func (r productReq) input() usecase.ProductInput {
	return usecase.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		CategoryID:  r.CategoryID,
		ImageURL:    r.ImageURL,
	}
}

// GET /v1/seller/products
func (h *CatalogHandler) SellerProducts(c *gin.Context) {
	f, err := parseProductFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	ps, err := h.catalog.SellerProducts(c.Request.Context(), middleware.UserID(c), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": ps})
}

// POST /v1/seller/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), middleware.UserID(c), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// PUT /v1/seller/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /v1/seller/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /v1/seller/dashboard
func (h *CatalogHandler) Dashboard(c *gin.Context) {
	d, err := h.catalog.Dashboard(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDashboardResp(d))
}

func parseProductFilter(c *gin.Context) (usecase.ProductFilter, error) {
	f := usecase.ProductFilter{
		CategoryID: c.Query("category"),
		Search:     c.Query("q"),
		Sort:       usecase.SortNewest,
	}
	switch s := usecase.StockFilter(c.Query("stock")); s {
	case usecase.StockAny, usecase.StockIn, usecase.StockOut:
		f.Stock = s
	default:
		return f, fmt.Errorf("unknown stock filter %q", s)
	}
	switch s := usecase.ProductSort(c.Query("sort")); s {
	case "":
	case usecase.SortNewest, usecase.SortPriceAsc, usecase.SortPriceDesc:
		f.Sort = s
	default:
		return f, fmt.Errorf("unknown sort %q", s)
	}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, fmt.Errorf("%s must be a number", name)
		}
		*dst = &d
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return f, fmt.Errorf("limit must be a positive integer")
		}
		f.Limit = n
	}
	if f.Limit == 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f, nil
}
