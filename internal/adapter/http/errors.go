package http

import (
	"errors"
	"net/http"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// writeError maps use case errors to status codes. NotFound and Unauthorized
// share one response so callers cannot probe for other users' resources.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var stock *usecase.StockError
	switch {
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_stock",
			"message":   stock.Error(),
			"productId": stock.ProductID,
			"product":   stock.ProductName,
			"available": stock.Available,
		})
	case errors.Is(err, usecase.ErrNotFound), errors.Is(err, usecase.ErrUnauthorized):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, usecase.ErrTransactionFailure):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transaction_failure", "message": usecase.ErrTransactionFailure.Error()})
	case errors.Is(err, usecase.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
	case errors.Is(err, usecase.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_cart", "message": err.Error()})
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, usecase.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken", "message": err.Error()})
	case errors.Is(err, usecase.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_request"})
	case errors.Is(err, usecase.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "message": err.Error()})
	case errors.Is(err, usecase.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_state", "message": err.Error()})
	case errors.Is(err, usecase.ErrPaymentNotConfirmed):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment_not_confirmed"})
	case errors.Is(err, usecase.ErrVerificationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "verification_failed", "message": "unable to verify payment, try again"})
	case errors.Is(err, usecase.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "gateway_unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
	}
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
}
