package seats

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// compensationTimeout bounds marker cleanup after a failed acquisition
const compensationTimeout = 3 * time.Second

// Coordinator grants exclusive holds on seats.
//
// The only atomic step is the conditional set of the lock marker; the
// marker's winner is the sole writer of the seat record until it expires or
// the reconciler removes it. Any failure after the marker is won removes the
// marker again. A failed acquisition leaves cleanup to the marker TTL.
type Coordinator struct {
	repo Repository
	opts Options
}

func NewCoordinator(repo Repository, opts Options) *Coordinator {
	return &Coordinator{repo: repo, opts: opts.withDefaults()}
}

func (c *Coordinator) LockTTL() time.Duration {
	return c.opts.LockTTL
}

func (c *Coordinator) LockSeat(ctx context.Context, productID int64, seatID string, userID int64) (*SeatLock, error) {
	if err := validateSeatRef(productID, seatID); err != nil {
		return nil, err
	}
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	holder := strconv.FormatInt(userID, 10)
	acquiredAt := c.opts.Now()

	acquired, err := c.repo.AcquireMarker(ctx, productID, seatID, holder, c.opts.LockTTL)
	if err != nil {
		// A marker written before the error surfaced is left to its TTL. The
		// value names only the user, so deleting it here could remove a live
		// hold the same user won on an earlier attempt.
		return nil, fmt.Errorf("acquire lock marker: %w", err)
	}
	if !acquired {
		c.opts.Logger.LogLockRejected(ctx, productID, seatID, userID, ErrAlreadyLocked.Error())
		return nil, ErrAlreadyLocked
	}

	lock, err := c.holdSeat(ctx, productID, seatID, userID, acquiredAt)
	if err != nil {
		c.compensate(ctx, productID, seatID, holder, err)
		if isRejection(err) {
			c.opts.Logger.LogLockRejected(ctx, productID, seatID, userID, err.Error())
		}
		return nil, err
	}

	c.opts.Logger.LogSeatLocked(ctx, productID, seatID, userID, lock.ExpiresAt)
	return lock, nil
}

// holdSeat moves the record to LOCKED once the marker is owned
func (c *Coordinator) holdSeat(ctx context.Context, productID int64, seatID string, userID int64, acquiredAt time.Time) (*SeatLock, error) {
	rec, err := c.repo.GetSeat(ctx, productID, seatID)
	if err != nil {
		return nil, err
	}

	from := rec.Status
	cause := CauseLock
	switch rec.Status {
	case StatusAvailable:
	case StatusLocked:
		// Winning the marker while the record says LOCKED means the
		// previous holder's marker expired without a completion event.
		if !c.opts.ReclaimExpired {
			return nil, ErrAlreadyReserved
		}
		cause = CauseReclaim
		c.opts.Logger.LogExpiredHoldReclaimed(ctx, productID, seatID, userID)
	case StatusReserved:
		return nil, ErrAlreadyReserved
	default:
		return nil, fmt.Errorf("%w: seat %s has status %q", ErrMalformedRecord, seatID, rec.Status)
	}

	rec.Status = StatusLocked
	if err := c.repo.SaveSeat(ctx, productID, *rec); err != nil {
		return nil, err
	}

	recordTransition(ctx, c.opts, Transition{
		ProductID: productID,
		SeatID:    seatID,
		From:      from,
		To:        StatusLocked,
		UserID:    userID,
		Cause:     cause,
		At:        acquiredAt,
	})

	return &SeatLock{
		ProductID: productID,
		SeatID:    seatID,
		UserID:    userID,
		ExpiresAt: acquiredAt.Add(c.opts.LockTTL),
		Reclaimed: cause == CauseReclaim,
	}, nil
}

// compensate removes the marker if it still names holder. It runs on a
// context detached from the caller's cancellation so an aborted request
// still cleans up.
func (c *Coordinator) compensate(ctx context.Context, productID int64, seatID, holder string, cause error) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	_, cleanupErr := c.repo.ReleaseMarker(cleanupCtx, productID, seatID, holder)
	if cleanupErr == nil && isRejection(cause) {
		return
	}
	c.opts.Logger.LogLockCompensated(ctx, productID, seatID, cause, cleanupErr)
}
