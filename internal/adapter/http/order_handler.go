package http

import (
	"errors"
	"net/http"

	"github.com/aq2208/gstore-api/internal/adapter/http/middleware"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	checkout *usecase.Checkout
	orders   *usecase.Orders
}

func NewOrderHandler(checkout *usecase.Checkout, orders *usecase.Orders) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

type addressReq struct {
	ShippingAddress string `json:"shippingAddress" binding:"required"`
}

type completeResp struct {
	OrderID          string `json:"orderId"`
	Status           string `json:"status"`
	AlreadyCompleted bool   `json:"alreadyCompleted"`
}

// POST /v1/checkout/session
func (h *OrderHandler) StartPayment(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.checkout.StartPayment(c.Request.Context(), middleware.UserID(c), req.ShippingAddress)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"orderId":   out.OrderID,
		"sessionId": out.SessionID,
		"url":       out.URL,
	})
}

// POST /v1/checkout/confirm  {"sessionId": "..."}; also accepts ?session_id=
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.SessionID == "" {
		req.SessionID = c.Query("session_id")
	}
	out, err := h.checkout.ConfirmPayment(c.Request.Context(), usecase.ConfirmInput{
		SessionID: req.SessionID,
		UserID:    middleware.UserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, completeResp{OrderID: out.OrderID, Status: "COMPLETED", AlreadyCompleted: out.AlreadyCompleted})
}

// POST /v1/orders places the cart directly, without a gateway session.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req addressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	idemKey := c.GetHeader("X-Idempotency-Key") // prevent duplicated requests

	out, err := h.checkout.PlaceOrder(c.Request.Context(), usecase.PlaceOrderInput{
		UserID:         middleware.UserID(c),
		Address:        req.ShippingAddress,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInsufficientStock) {
			logging.From(c).Info("order rejected", "err", err)
		}
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if out.AlreadyCompleted {
		status = http.StatusOK
	}
	c.JSON(status, completeResp{OrderID: out.OrderID, Status: "COMPLETED", AlreadyCompleted: out.AlreadyCompleted})
}

// GET /v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	list, err := h.orders.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]orderResp, 0, len(list))
	for i := range list {
		out = append(out, toOrderResp(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

// GET /v1/orders/:id
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResp(o))
}
