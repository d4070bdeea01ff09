package seats

import (
	"context"
	"time"

	"seatkeeper/internal/shared/constants"
	"seatkeeper/pkg/logger"
)

// TransitionRecorder receives every status change the engine applies.
// A recorder failure is logged and never fails the seat operation.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, t Transition) error
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(context.Context, Transition) error { return nil }

// Options configures the catalog, coordinator, reconciler and sweeper
type Options struct {
	LockTTL time.Duration
	// ReclaimExpired lets a new holder take over a LOCKED seat whose marker
	// has expired. When false such a seat is reported as ErrAlreadyReserved.
	ReclaimExpired bool
	Now            func() time.Time
	Logger         *logger.Logger
	Recorder       TransitionRecorder
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		LockTTL:        constants.TTL_SEAT_LOCK,
		ReclaimExpired: true,
	}
}

func (o Options) withDefaults() Options {
	if o.LockTTL <= 0 {
		o.LockTTL = constants.TTL_SEAT_LOCK
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logger.GetDefault()
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	return o
}

func recordTransition(ctx context.Context, opts Options, t Transition) {
	if t.At.IsZero() {
		t.At = opts.Now()
	}
	if err := opts.Recorder.RecordTransition(ctx, t); err != nil {
		opts.Logger.ErrorWithContext(ctx, "Failed to record seat transition", err, map[string]interface{}{
			"product_id": t.ProductID,
			"seat_id":    t.SeatID,
			"from":       t.From.String(),
			"to":         t.To.String(),
		})
	}
}
