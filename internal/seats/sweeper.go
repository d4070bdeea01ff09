package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	sweepHolder    = "sweeper"
	sweepMarkerTTL = 30 * time.Second
)

// Sweeper periodically returns LOCKED seats with no live marker to
// AVAILABLE. Claiming the marker keeps new holds out while it works. A
// reconciler may still be applying a late payment result, so the record is
// only rewritten if it still holds the LOCKED value the sweeper read.
type Sweeper struct {
	repo      Repository
	opts      Options
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewSweeper(repo Repository, opts Options, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{repo: repo, opts: opts.withDefaults(), interval: interval}
}

// Start schedules SweepOnce every interval until Stop is called
func (s *Sweeper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create sweep scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.opts.Logger.ErrorWithContext(ctx, "Seat sweep failed", err, nil)
				return
			}
			if n > 0 {
				s.opts.Logger.InfoWithContext(ctx, "Seat sweep released orphaned holds", map[string]interface{}{
					"released": n,
				})
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule seat sweep: %w", err)
	}

	sched.Start()
	s.scheduler = sched
	s.opts.Logger.Info("Seat sweeper started", "interval", s.interval.String())
	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// SweepOnce scans every product and releases orphaned holds. It returns the
// number of seats released. A malformed seat map is logged and skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, productID := range products {
		recs, err := s.repo.ListSeats(ctx, productID)
		if errors.Is(err, ErrMalformedRecord) {
			s.opts.Logger.ErrorWithContext(ctx, "Skipping malformed seat map", err, map[string]interface{}{
				"product_id": productID,
			})
			continue
		}
		if err != nil {
			return released, err
		}

		for _, rec := range recs {
			if rec.Status != StatusLocked {
				continue
			}
			ok, err := s.releaseOrphan(ctx, productID, rec.SeatID)
			if err != nil {
				return released, err
			}
			if ok {
				released++
			}
		}
	}
	return released, nil
}

func (s *Sweeper) releaseOrphan(ctx context.Context, productID int64, seatID string) (bool, error) {
	acquired, err := s.repo.AcquireMarker(ctx, productID, seatID, sweepHolder, sweepMarkerTTL)
	if err != nil {
		return false, err
	}
	if !acquired {
		// hold still live
		return false, nil
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
		defer cancel()
		if _, err := s.repo.ReleaseMarker(cleanupCtx, productID, seatID, sweepHolder); err != nil {
			s.opts.Logger.ErrorWithContext(ctx, "Failed to drop sweep marker", err, map[string]interface{}{
				"product_id": productID,
				"seat_id":    seatID,
			})
		}
	}()

	swapped, err := s.repo.CompareAndSetStatus(ctx, productID, seatID, StatusLocked, StatusAvailable)
	if err != nil || !swapped {
		return false, err
	}
	recordTransition(ctx, s.opts, Transition{
		ProductID: productID,
		SeatID:    seatID,
		From:      StatusLocked,
		To:        StatusAvailable,
		Cause:     CauseSwept,
	})
	s.opts.Logger.LogLockReleased(ctx, productID, seatID, "hold expired")
	return true, nil
}
