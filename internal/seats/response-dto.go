package seats

import "time"

type RegisterSeatsResponse struct {
	ProductID  int64 `json:"productId"`
	Registered int   `json:"registered"`
}

type LockSeatResponse struct {
	ProductID  int64     `json:"productId"`
	SeatID     string    `json:"seatId"`
	UserID     int64     `json:"userId"`
	ExpiresAt  time.Time `json:"expiresAt"`
	TTLSeconds int       `json:"ttlSeconds"`
	Reclaimed  bool      `json:"reclaimed,omitempty"`
}

func NewLockSeatResponse(lock *SeatLock, ttl time.Duration) LockSeatResponse {
	return LockSeatResponse{
		ProductID:  lock.ProductID,
		SeatID:     lock.SeatID,
		UserID:     lock.UserID,
		ExpiresAt:  lock.ExpiresAt,
		TTLSeconds: int(ttl.Seconds()),
		Reclaimed:  lock.Reclaimed,
	}
}

// Machine-readable error codes
const (
	CodeSeatAlreadyLocked   = "SEAT_ALREADY_LOCKED"
	CodeSeatNotFound        = "SEAT_NOT_FOUND"
	CodeSeatAlreadyReserved = "SEAT_ALREADY_RESERVED"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeStoreTimeout        = "STORE_TIMEOUT"
	CodeInternal            = "INTERNAL_ERROR"
)
