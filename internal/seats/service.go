package seats

import (
	"context"
	"time"
)

type Service interface {
	// Catalog
	RegisterSeats(ctx context.Context, productID int64, seats []SeatInfo) error
	ListSeatStatuses(ctx context.Context, productID int64) ([]SeatStatusView, error)

	// Locking
	LockSeat(ctx context.Context, productID int64, seatID string, userID int64) (*SeatLock, error)
	LockTTL() time.Duration

	// Reconciliation
	OnCompletion(ctx context.Context, ev CompletionEvent) error
	ConfirmReservation(ctx context.Context, productID int64, seatID string) error
	ReleaseLock(ctx context.Context, productID int64, seatID string) error
}

type service struct {
	*Catalog
	*Coordinator
	*Reconciler
}

func NewService(repo Repository, opts Options) Service {
	return &service{
		Catalog:     NewCatalog(repo, opts),
		Coordinator: NewCoordinator(repo, opts),
		Reconciler:  NewReconciler(repo, opts),
	}
}
