package ledger

import (
	"time"

	"seatkeeper/internal/seats"
)

// SeatTransition is one row of the seat audit trail
type SeatTransition struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  int64     `gorm:"not null;index:idx_seat_transitions_seat,priority:1" json:"productId"`
	SeatID     string    `gorm:"type:varchar(64);not null;index:idx_seat_transitions_seat,priority:2" json:"seatId"`
	FromStatus string    `gorm:"type:varchar(16);not null;check:from_status IN ('AVAILABLE', 'LOCKED', 'RESERVED')" json:"fromStatus"`
	ToStatus   string    `gorm:"type:varchar(16);not null;check:to_status IN ('AVAILABLE', 'LOCKED', 'RESERVED')" json:"toStatus"`
	UserID     *int64    `json:"userId,omitempty"`
	OrderID    *int64    `json:"orderId,omitempty"`
	Cause      string    `gorm:"type:varchar(32);not null;index" json:"cause"`
	OccurredAt time.Time `gorm:"not null" json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (SeatTransition) TableName() string {
	return "seat_transitions"
}

// FromTransition converts an engine transition into a ledger row.
// Zero user and order ids are stored as NULL.
func FromTransition(t seats.Transition) *SeatTransition {
	row := &SeatTransition{
		ProductID:  t.ProductID,
		SeatID:     t.SeatID,
		FromStatus: t.From.String(),
		ToStatus:   t.To.String(),
		Cause:      t.Cause,
		OccurredAt: t.At.UTC(),
	}
	if t.UserID != 0 {
		userID := t.UserID
		row.UserID = &userID
	}
	if t.OrderID != 0 {
		orderID := t.OrderID
		row.OrderID = &orderID
	}
	return row
}
