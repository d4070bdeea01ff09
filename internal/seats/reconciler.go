package seats

import (
	"context"
	"errors"
	"fmt"
)

// Reconciler applies payment outcomes to held seats. Events may be
// redelivered, so every transition is guarded by the current status.
type Reconciler struct {
	repo Repository
	opts Options
}

func NewReconciler(repo Repository, opts Options) *Reconciler {
	return &Reconciler{repo: repo, opts: opts.withDefaults()}
}

// OnCompletion dispatches a payment outcome. Store errors are returned so the
// ingress can redeliver; stale events are logged and acknowledged.
func (r *Reconciler) OnCompletion(ctx context.Context, ev CompletionEvent) error {
	if err := validateSeatRef(ev.ProductID, ev.SeatID); err != nil {
		return fmt.Errorf("completion for order %d: %w", ev.OrderID, err)
	}

	if ev.Success {
		return r.confirm(ctx, ev.ProductID, ev.SeatID, ev.OrderID)
	}

	reason := "payment failed"
	if ev.Reason != nil && *ev.Reason != "" {
		reason = *ev.Reason
	}
	return r.release(ctx, ev.ProductID, ev.SeatID, ev.OrderID, reason)
}

// ConfirmReservation finalises a held seat as RESERVED and drops its marker
func (r *Reconciler) ConfirmReservation(ctx context.Context, productID int64, seatID string) error {
	if err := validateSeatRef(productID, seatID); err != nil {
		return err
	}
	return r.confirm(ctx, productID, seatID, 0)
}

// ReleaseLock returns a held seat to AVAILABLE and drops its marker
func (r *Reconciler) ReleaseLock(ctx context.Context, productID int64, seatID string) error {
	if err := validateSeatRef(productID, seatID); err != nil {
		return err
	}
	return r.release(ctx, productID, seatID, 0, "released")
}

func (r *Reconciler) confirm(ctx context.Context, productID int64, seatID string, orderID int64) error {
	rec, err := r.repo.GetSeat(ctx, productID, seatID)
	if errors.Is(err, ErrSeatNotFound) {
		r.opts.Logger.LogStaleEvent(ctx, productID, seatID, "confirmation for an unknown seat")
		return nil
	}
	if err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}

	switch rec.Status {
	case StatusReserved:
		// duplicate delivery
	case StatusLocked:
		rec.Status = StatusReserved
		if err := r.repo.SaveSeat(ctx, productID, *rec); err != nil {
			return fmt.Errorf("confirm reservation: %w", err)
		}
		recordTransition(ctx, r.opts, Transition{
			ProductID: productID,
			SeatID:    seatID,
			From:      StatusLocked,
			To:        StatusReserved,
			OrderID:   orderID,
			Cause:     CauseConfirmed,
		})
		r.opts.Logger.LogReservationConfirmed(ctx, productID, seatID, orderID)
	default:
		// AVAILABLE cannot become RESERVED without a hold; leave everything as is
		r.opts.Logger.LogUnheldConfirmation(ctx, productID, seatID, orderID, string(rec.Status))
		return nil
	}

	if err := r.repo.DeleteMarker(ctx, productID, seatID); err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	return nil
}

func (r *Reconciler) release(ctx context.Context, productID int64, seatID string, orderID int64, reason string) error {
	rec, err := r.repo.GetSeat(ctx, productID, seatID)
	if errors.Is(err, ErrSeatNotFound) {
		r.opts.Logger.LogStaleEvent(ctx, productID, seatID, "release for an unknown seat")
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	if rec.Status == StatusLocked {
		rec.Status = StatusAvailable
		if err := r.repo.SaveSeat(ctx, productID, *rec); err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		recordTransition(ctx, r.opts, Transition{
			ProductID: productID,
			SeatID:    seatID,
			From:      StatusLocked,
			To:        StatusAvailable,
			OrderID:   orderID,
			Cause:     CauseFailed,
		})
		r.opts.Logger.LogLockReleased(ctx, productID, seatID, reason)
	}

	if err := r.repo.DeleteMarker(ctx, productID, seatID); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
