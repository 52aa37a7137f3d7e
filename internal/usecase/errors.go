package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrVerificationFailed  = errors.New("unable to verify payment")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrInvalidState        = errors.New("invalid order state")
	ErrTransactionFailure  = errors.New("order processing failed, contact support")
	ErrConflict            = errors.New("concurrent modification, retry")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmailTaken          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicate           = errors.New("duplicate idempotency key")
)

// StockError names the product whose stock cannot cover the requested quantity.
type StockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (requested %d, available %d)", e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// TxError reports a store failure while completing an order. The transaction
// was rolled back; the order is still open.
type TxError struct {
	OrderID string
	Err     error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("complete order %s: %v", e.OrderID, e.Err)
}

func (e *TxError) Unwrap() []error { return []error{ErrTransactionFailure, e.Err} }
