package http

import (
	"errors"
	"net/http"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	checkout *usecase.Checkout
}

func NewWebhookHandler(checkout *usecase.Checkout) *WebhookHandler {
	return &WebhookHandler{checkout: checkout}
}

// POST /v1/payments/webhook
// The body is a signed payment event; verification runs in middleware.
func (h *WebhookHandler) PaymentEvent(c *gin.Context) {
	var ev usecase.PaymentEventMsg
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.checkout.HandlePaymentEvent(c.Request.Context(), ev); err != nil {
		_ = c.Error(err)
		if errors.Is(err, usecase.ErrRetryable) {
			// non-2xx asks the gateway to redeliver
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "retry_later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
