package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Accounts *AccountHandler
	Catalog  *CatalogHandler
	Cart     *CartHandler
	Orders   *OrderHandler
	Webhook  *WebhookHandler
}

type RouterOptions struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	// WebhookVerifier nil disables POST /v1/payments/webhook.
	WebhookVerifier security.Signer
}

func NewRouter(h Handlers, authz *middleware.Authz, opt RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := opt.Logger
	if l == nil {
		l = logging.New("http")
	}
	r.Use(middleware.Logging(l), middleware.Timeout(opt.RequestTimeout))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	need := authz.Require

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/register", h.Accounts.Register)
		v1.POST("/auth/token", h.Accounts.IssueToken)

		v1.GET("/home", h.Catalog.Home)
		v1.GET("/categories", h.Catalog.Categories)
		v1.GET("/products", h.Catalog.ListProducts)
		v1.GET("/products/:id", h.Catalog.GetProduct)

		v1.GET("/cart", need(domain.CapCart), h.Cart.View)
		v1.POST("/cart/items", need(domain.CapCart), h.Cart.AddItem)
		v1.PATCH("/cart/items/:id", need(domain.CapCart), h.Cart.UpdateItem)
		v1.DELETE("/cart/items/:id", need(domain.CapCart), h.Cart.RemoveItem)

		v1.POST("/checkout/session", need(domain.CapCheckout), h.Orders.StartPayment)
		v1.POST("/checkout/confirm", need(domain.CapCheckout), h.Orders.ConfirmPayment)
		v1.POST("/orders", need(domain.CapCheckout), h.Orders.PlaceOrder)
		v1.GET("/orders", need(domain.CapOrdersRead), h.Orders.ListOrders)
		v1.GET("/orders/:id", need(domain.CapOrdersRead), h.Orders.GetOrderByID)

		v1.GET("/profile", need(domain.CapProfile), h.Accounts.Profile)
		v1.PATCH("/profile", need(domain.CapProfile), h.Accounts.UpdateProfile)

		seller := v1.Group("/seller", need(domain.CapCatalogManage))
		seller.GET("/products", h.Catalog.SellerProducts)
		seller.POST("/products", h.Catalog.CreateProduct)
		seller.PUT("/products/:id", h.Catalog.UpdateProduct)
		seller.DELETE("/products/:id", h.Catalog.DeleteProduct)
		seller.GET("/dashboard", h.Catalog.Dashboard)

		admin := v1.Group("/admin", need(domain.CapUsersManage))
		admin.GET("/users", h.Accounts.ListUsers)
		admin.DELETE("/users/:id", h.Accounts.DeleteUser)

		if opt.WebhookVerifier != nil && h.Webhook != nil {
			v1.POST("/payments/webhook", middleware.VerifySignature(opt.WebhookVerifier), h.Webhook.PaymentEvent)
		}
	}

	return r
}
