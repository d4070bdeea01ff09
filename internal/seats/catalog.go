package seats

import (
	"context"
	"fmt"
)

// Catalog registers seat maps and lists their current state
type Catalog struct {
	repo Repository
	opts Options
}

func NewCatalog(repo Repository, opts Options) *Catalog {
	return &Catalog{repo: repo, opts: opts.withDefaults()}
}

// RegisterSeats writes every seat as AVAILABLE in one bulk upsert.
// Registering a seat id that already exists overwrites it, including any
// LOCKED or RESERVED state.
func (c *Catalog) RegisterSeats(ctx context.Context, productID int64, seats []SeatInfo) error {
	if productID <= 0 {
		return ErrInvalidProductID
	}
	if len(seats) == 0 {
		return nil
	}

	recs := make([]SeatRecord, 0, len(seats))
	for _, s := range seats {
		recs = append(recs, SeatRecord{
			SeatID: s.SeatID(),
			Grade:  s.Grade,
			Price:  s.Price,
			Status: StatusAvailable,
		})
	}

	if err := c.repo.SaveSeats(ctx, productID, recs); err != nil {
		return fmt.Errorf("register seats: %w", err)
	}

	c.opts.Logger.InfoWithContext(ctx, "Seats registered", map[string]interface{}{
		"product_id": productID,
		"count":      len(recs),
	})
	return nil
}

// ListSeatStatuses returns every seat of the product ordered by seat id
func (c *Catalog) ListSeatStatuses(ctx context.Context, productID int64) ([]SeatStatusView, error) {
	if productID <= 0 {
		return nil, ErrInvalidProductID
	}

	recs, err := c.repo.ListSeats(ctx, productID)
	if err != nil {
		return nil, err
	}

	views := make([]SeatStatusView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, rec.View())
	}
	return views, nil
}
