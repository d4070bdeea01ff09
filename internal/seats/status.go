package seats

import (
	"encoding/json"
	"fmt"
)

type SeatStatus string

const (
	StatusAvailable SeatStatus = "AVAILABLE"
	StatusLocked    SeatStatus = "LOCKED"
	StatusReserved  SeatStatus = "RESERVED"
)

// ParseSeatStatus decodes a stored status. Anything outside the three
// known values is rejected.
func ParseSeatStatus(s string) (SeatStatus, error) {
	switch SeatStatus(s) {
	case StatusAvailable:
		return StatusAvailable, nil
	case StatusLocked:
		return StatusLocked, nil
	case StatusReserved:
		return StatusReserved, nil
	}
	return "", fmt.Errorf("%w: unknown seat status %q", ErrMalformedRecord, s)
}

// IsValid checks if the seat status is valid
func (s SeatStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusLocked, StatusReserved:
		return true
	}
	return false
}

// String returns the string representation of SeatStatus
func (s SeatStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s SeatStatus) IsTerminal() bool {
	return s == StatusReserved
}

// CanTransitionTo encodes the seat lifecycle:
// AVAILABLE -> LOCKED -> RESERVED, LOCKED -> AVAILABLE, and LOCKED -> LOCKED
// when an expired hold is taken over by a new holder.
func (s SeatStatus) CanTransitionTo(next SeatStatus) bool {
	switch s {
	case StatusAvailable:
		return next == StatusLocked
	case StatusLocked:
		return next == StatusLocked || next == StatusReserved || next == StatusAvailable
	case StatusReserved:
		return false
	}
	return false
}

func (s *SeatStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: status is not a string", ErrMalformedRecord)
	}
	parsed, err := ParseSeatStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
