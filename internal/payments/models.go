package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"seatkeeper/internal/seats"

	"github.com/go-playground/validator/v10"
)

// PaymentResultMessage is published by the payment service once a payment
// for a held seat succeeds or fails. PaymentID is only set on success and
// Reason only on failure.
type PaymentResultMessage struct {
	OrderID   int64   `json:"orderId" validate:"gte=0"`
	Success   bool    `json:"success"`
	PaymentID *string `json:"paymentId,omitempty"`
	Reason    *string `json:"reason,omitempty"`
	ProductID int64   `json:"productId" validate:"gt=0"`
	SeatID    string  `json:"seatId" validate:"required"`
}

// ErrInvalidMessage marks a message that can never be applied
var ErrInvalidMessage = errors.New("invalid payment result message")

var validate = validator.New()

// ParsePaymentResult decodes and validates a raw message body
func ParsePaymentResult(body []byte) (*PaymentResultMessage, error) {
	var msg PaymentResultMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &msg, nil
}

func (m *PaymentResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PartitionKey keeps every event for one seat on the same partition
func (m *PaymentResultMessage) PartitionKey() string {
	return strconv.FormatInt(m.ProductID, 10) + ":" + m.SeatID
}

func (m *PaymentResultMessage) ToCompletionEvent() seats.CompletionEvent {
	return seats.CompletionEvent{
		OrderID:   m.OrderID,
		Success:   m.Success,
		ProductID: m.ProductID,
		SeatID:    m.SeatID,
		PaymentID: m.PaymentID,
		Reason:    m.Reason,
	}
}
