package seats

type RegisterSeatsRequest struct {
	ProductID int64      `json:"productId" binding:"required,gt=0"`
	Seats     []SeatInfo `json:"seats" binding:"dive"`
}

// Seat locking (core flow)
type LockSeatRequest struct {
	ProductID int64  `json:"productId" binding:"required,gt=0"`
	SeatID    string `json:"seatId" binding:"required"`
	UserID    int64  `json:"userId" binding:"required,gt=0"`
}
