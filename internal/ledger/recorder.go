package ledger

import (
	"context"

	"seatkeeper/internal/seats"
)

// Recorder persists engine transitions into the ledger table
type Recorder struct {
	repo Repository
}

var _ seats.TransitionRecorder = (*Recorder)(nil)

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) RecordTransition(ctx context.Context, t seats.Transition) error {
	return r.repo.Record(ctx, FromTransition(t))
}
