package archive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dkeye/LiveState/internal/domain"
	"github.com/dkeye/LiveState/internal/logging"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

var ErrEmptyLiveID = errors.New("live id required")

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&SummaryRecord{})
}

func (r *Repository) Save(ctx context.Context, liveID string, data domain.LiveSummaryData) (Summary, error) {
	l := logging.Ctx(ctx)
	if liveID == "" {
		return Summary{}, ErrEmptyLiveID
	}
	rec := recordFrom(uuid.NewString(), liveID, data, r.now().UTC())
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		l.Error().Err(err).Str("module", "archive").Str("live_id", liveID).Msg("failed to save summary")
		return Summary{}, err
	}
	l.Info().Str("module", "archive").Str("live_id", liveID).Str("id", rec.ID).Msg("summary archived")
	return rec.ToDomain(), nil
}

// Archive satisfies the hub's archiver.
func (r *Repository) Archive(ctx context.Context, liveID string, data domain.LiveSummaryData) error {
	_, err := r.Save(ctx, liveID, data)
	return err
}

// ListByLive returns the summaries of liveID, newest first.
func (r *Repository) ListByLive(ctx context.Context, liveID string, limit int) ([]Summary, error) {
	if liveID == "" {
		return nil, ErrEmptyLiveID
	}
	return r.find(ctx, r.db.WithContext(ctx).Where("live_id = ?", liveID), limit)
}

// Recent returns the latest summaries across all lives.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Summary, error) {
	return r.find(ctx, r.db.WithContext(ctx), limit)
}

func (r *Repository) find(ctx context.Context, q *gorm.DB, limit int) ([]Summary, error) {
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	var recs []SummaryRecord
	if err := q.Order("ended_at DESC").Order("id").Limit(limit).Find(&recs).Error; err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("module", "archive").Msg("failed to list summaries")
		return nil, err
	}
	out := make([]Summary, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].ToDomain())
	}
	return out, nil
}
