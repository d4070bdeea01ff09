package seats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SeatInfo describes one seat at registration time
type SeatInfo struct {
	Grade      string `json:"grade" binding:"required"`
	Section    string `json:"section" binding:"required"`
	Row        string `json:"row" binding:"required"`
	SeatNumber int    `json:"seatNumber" binding:"required,min=1"`
	Price      int64  `json:"price" binding:"min=0"`
}

// SeatID collapses section, row and number into the stored field name
func (s SeatInfo) SeatID() string {
	return BuildSeatID(s.Section, s.Row, s.SeatNumber)
}

func BuildSeatID(section, row string, seatNumber int) string {
	return section + "-" + row + "-" + strconv.Itoa(seatNumber)
}

// SeatRecord is the stored state of one seat inside a product's seat hash
type SeatRecord struct {
	SeatID string
	Grade  string
	Price  int64
	Status SeatStatus
}

// seatDocument is the JSON value stored under each hash field
type seatDocument struct {
	Status SeatStatus `json:"status"`
	Grade  string     `json:"grade"`
	Price  int64      `json:"price"`
}

func encodeSeat(rec SeatRecord) (string, error) {
	b, err := json.Marshal(seatDocument{
		Status: rec.Status,
		Grade:  rec.Grade,
		Price:  rec.Price,
	})
	if err != nil {
		return "", fmt.Errorf("encode seat %s: %w", rec.SeatID, err)
	}
	return string(b), nil
}

func decodeSeat(seatID, raw string) (*SeatRecord, error) {
	var doc seatDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		if errors.Is(err, ErrMalformedRecord) {
			return nil, fmt.Errorf("seat %s: %w", seatID, err)
		}
		return nil, fmt.Errorf("%w: seat %s: %v", ErrMalformedRecord, seatID, err)
	}
	if !doc.Status.IsValid() {
		return nil, fmt.Errorf("%w: seat %s has no status", ErrMalformedRecord, seatID)
	}
	return &SeatRecord{
		SeatID: seatID,
		Grade:  doc.Grade,
		Price:  doc.Price,
		Status: doc.Status,
	}, nil
}

// SeatStatusView is the listing projection of a seat
type SeatStatusView struct {
	SeatID string     `json:"seatId"`
	Grade  string     `json:"grade"`
	Price  int64      `json:"price"`
	Status SeatStatus `json:"status"`
}

func (r SeatRecord) View() SeatStatusView {
	return SeatStatusView{
		SeatID: r.SeatID,
		Grade:  r.Grade,
		Price:  r.Price,
		Status: r.Status,
	}
}

// SeatLock is returned to the caller that won a seat
type SeatLock struct {
	ProductID int64
	SeatID    string
	UserID    int64
	ExpiresAt time.Time
	// Reclaimed is set when the seat was taken over from an expired hold
	Reclaimed bool
}

// CompletionEvent is the outcome of a payment for one held seat
type CompletionEvent struct {
	OrderID   int64
	Success   bool
	ProductID int64
	SeatID    string
	PaymentID *string
	Reason    *string
}

// Transition is one applied status change, handed to the TransitionRecorder
type Transition struct {
	ProductID int64
	SeatID    string
	From      SeatStatus
	To        SeatStatus
	UserID    int64
	OrderID   int64
	Cause     string
	At        time.Time
}

// Transition causes
const (
	CauseLock      = "lock"
	CauseReclaim   = "reclaim"
	CauseConfirmed = "payment_confirmed"
	CauseFailed    = "payment_failed"
	CauseSwept     = "sweep"
)

func validateSeatRef(productID int64, seatID string) error {
	if productID <= 0 {
		return ErrInvalidProductID
	}
	if strings.TrimSpace(seatID) == "" {
		return ErrInvalidSeatID
	}
	return nil
}
