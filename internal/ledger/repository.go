package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Repository interface {
	Record(ctx context.Context, row *SeatTransition) error
	ListBySeat(ctx context.Context, productID int64, seatID string, limit int) ([]SeatTransition, error)
	CountByCause(ctx context.Context, productID int64) (map[string]int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Record(ctx context.Context, row *SeatTransition) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to record seat transition: %w", err)
	}
	return nil
}

// ListBySeat returns the newest transitions of a seat first
func (r *repository) ListBySeat(ctx context.Context, productID int64, seatID string, limit int) ([]SeatTransition, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var rows []SeatTransition
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND seat_id = ?", productID, seatID).
		Order("occurred_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seat transitions: %w", err)
	}
	return rows, nil
}

type causeCount struct {
	Cause string
	Total int64
}

// CountByCause tallies a product's transitions per cause
func (r *repository) CountByCause(ctx context.Context, productID int64) (map[string]int64, error) {
	var counts []causeCount
	err := r.db.WithContext(ctx).
		Model(&SeatTransition{}).
		Select("cause, COUNT(*) AS total").
		Where("product_id = ?", productID).
		Group("cause").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count seat transitions: %w", err)
	}

	result := make(map[string]int64, len(counts))
	for _, c := range counts {
		result[c.Cause] = c.Total
	}
	return result, nil
}
