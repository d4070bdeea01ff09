package seats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"seatkeeper/internal/shared/constants"
	"seatkeeper/internal/store"
)

type Repository interface {
	// Seat records
	GetSeat(ctx context.Context, productID int64, seatID string) (*SeatRecord, error)
	SaveSeat(ctx context.Context, productID int64, rec SeatRecord) error
	SaveSeats(ctx context.Context, productID int64, recs []SeatRecord) error
	CompareAndSetStatus(ctx context.Context, productID int64, seatID string, from, to SeatStatus) (bool, error)
	ListSeats(ctx context.Context, productID int64) ([]SeatRecord, error)
	ListProducts(ctx context.Context) ([]int64, error)

	// Lock markers
	AcquireMarker(ctx context.Context, productID int64, seatID, holder string, ttl time.Duration) (bool, error)
	ReleaseMarker(ctx context.Context, productID int64, seatID, holder string) (bool, error)
	DeleteMarker(ctx context.Context, productID int64, seatID string) error
}

type repository struct {
	store store.Store
}

func NewRepository(s store.Store) Repository {
	return &repository{store: s}
}

// SEAT RECORDS

func (r *repository) GetSeat(ctx context.Context, productID int64, seatID string) (*SeatRecord, error) {
	raw, ok, err := r.store.HashGet(ctx, constants.BuildSeatsKey(productID), seatID)
	if err != nil {
		return nil, fmt.Errorf("read seat %s: %w", seatID, err)
	}
	if !ok {
		return nil, ErrSeatNotFound
	}
	return decodeSeat(seatID, raw)
}

func (r *repository) SaveSeat(ctx context.Context, productID int64, rec SeatRecord) error {
	value, err := encodeSeat(rec)
	if err != nil {
		return err
	}
	if err := r.store.HashPut(ctx, constants.BuildSeatsKey(productID), rec.SeatID, value); err != nil {
		return fmt.Errorf("write seat %s: %w", rec.SeatID, err)
	}
	return nil
}

// CompareAndSetStatus moves a seat from one status to another only if the
// stored record is unchanged between the read and the write. It reports
// false when the seat is missing, has another status, or was rewritten
// concurrently.
func (r *repository) CompareAndSetStatus(ctx context.Context, productID int64, seatID string, from, to SeatStatus) (bool, error) {
	key := constants.BuildSeatsKey(productID)
	raw, ok, err := r.store.HashGet(ctx, key, seatID)
	if err != nil {
		return false, fmt.Errorf("read seat %s: %w", seatID, err)
	}
	if !ok {
		return false, nil
	}

	rec, err := decodeSeat(seatID, raw)
	if err != nil {
		return false, err
	}
	if rec.Status != from {
		return false, nil
	}

	rec.Status = to
	value, err := encodeSeat(*rec)
	if err != nil {
		return false, err
	}
	swapped, err := r.store.HashCompareAndSwap(ctx, key, seatID, raw, value)
	if err != nil {
		return false, fmt.Errorf("write seat %s: %w", seatID, err)
	}
	return swapped, nil
}

func (r *repository) SaveSeats(ctx context.Context, productID int64, recs []SeatRecord) error {
	if len(recs) == 0 {
		return nil
	}

	values := make(map[string]string, len(recs))
	for _, rec := range recs {
		value, err := encodeSeat(rec)
		if err != nil {
			return err
		}
		values[rec.SeatID] = value
	}

	if err := r.store.HashPutAll(ctx, constants.BuildSeatsKey(productID), values); err != nil {
		return fmt.Errorf("write %d seats for product %d: %w", len(values), productID, err)
	}
	return nil
}

func (r *repository) ListSeats(ctx context.Context, productID int64) ([]SeatRecord, error) {
	entries, err := r.store.HashEntries(ctx, constants.BuildSeatsKey(productID))
	if err != nil {
		return nil, fmt.Errorf("list seats for product %d: %w", productID, err)
	}

	recs := make([]SeatRecord, 0, len(entries))
	for seatID, raw := range entries {
		rec, err := decodeSeat(seatID, raw)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].SeatID < recs[j].SeatID
	})
	return recs, nil
}

func (r *repository) ListProducts(ctx context.Context) ([]int64, error) {
	keys, err := r.store.ScanKeys(ctx, constants.KEY_PATTERN_PRODUCT_SEATS)
	if err != nil {
		return nil, fmt.Errorf("scan seat maps: %w", err)
	}

	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		if id, ok := constants.ParseSeatsKey(key); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// LOCK MARKERS

func (r *repository) AcquireMarker(ctx context.Context, productID int64, seatID, holder string, ttl time.Duration) (bool, error) {
	return r.store.SetIfAbsent(ctx, constants.BuildLockKey(productID, seatID), holder, ttl)
}

// ReleaseMarker deletes the marker only while it still names holder
func (r *repository) ReleaseMarker(ctx context.Context, productID int64, seatID, holder string) (bool, error) {
	return r.store.DeleteIfEquals(ctx, constants.BuildLockKey(productID, seatID), holder)
}

func (r *repository) DeleteMarker(ctx context.Context, productID int64, seatID string) error {
	if err := r.store.Delete(ctx, constants.BuildLockKey(productID, seatID)); err != nil {
		return fmt.Errorf("delete lock marker for seat %s: %w", seatID, err)
	}
	return nil
}
