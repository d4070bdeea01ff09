package seats

import "errors"

// Expected outcomes of a lock attempt. Callers branch on them with errors.Is.
var (
	ErrAlreadyLocked   = errors.New("seat is already locked")
	ErrSeatNotFound    = errors.New("seat not found")
	ErrAlreadyReserved = errors.New("seat is already reserved")
)

// ErrMalformedRecord means a stored seat could not be decoded. It is handled
// like a store outage: the lock attempt is compensated and the error surfaces.
var ErrMalformedRecord = errors.New("malformed seat record")

// Input validation
var (
	ErrInvalidProductID = errors.New("product id must be positive")
	ErrInvalidSeatID    = errors.New("seat id is required")
	ErrInvalidUserID    = errors.New("user id must be positive")
)

// isRejection reports the expected, non-exceptional lock outcomes
func isRejection(err error) bool {
	return errors.Is(err, ErrAlreadyLocked) ||
		errors.Is(err, ErrSeatNotFound) ||
		errors.Is(err, ErrAlreadyReserved)
}
