package usecase

import "time"

const (
	TopicOrderCompleted = "order.completed"

	PaymentEventSessionCompleted = "checkout.session.completed"
)

// Written to the outbox inside the completion transaction.
type OrderCompletedMsg struct {
	EventID     string          `json:"eventId"`
	OrderID     string          `json:"orderId"`
	UserID      string          `json:"userId"`
	Total       string          `json:"total"`
	Via         string          `json:"via"` // "gateway" | "direct"
	Items       []CompletedLine `json:"items"`
	CompletedAt time.Time       `json:"completedAt"`
}

type CompletedLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Sent by the payment gateway on Kafka (and to the webhook).
type PaymentEventMsg struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}
