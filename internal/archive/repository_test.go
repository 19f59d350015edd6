package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/LiveState/internal/config"
	"github.com/dkeye/LiveState/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(config.ArchiveConfig{
		Driver:       "sqlite",
		FilePath:     "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := NewRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestSaveAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_, err := repo.Save(ctx, "live_1", domain.LiveSummaryData{TotalViewers: 10})
	require.NoError(t, err)
	_, err = repo.Save(ctx, "live_2", domain.LiveSummaryData{TotalViewers: 20})
	require.NoError(t, err)
	saved, err := repo.Save(ctx, "live_1", domain.LiveSummaryData{TotalViewers: 30, TotalGiftCoins: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	list, err := repo.ListByLive(ctx, "live_1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 30, list[0].TotalViewers)
	assert.Equal(t, 7, list[0].TotalGiftCoins)
	assert.Equal(t, 10, list[1].TotalViewers)

	recent, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "live_1", recent[0].LiveID)
	assert.Equal(t, "live_2", recent[1].LiveID)
}

func TestArchiveRequiresLiveID(t *testing.T) {
	repo := newTestRepo(t)
	assert.ErrorIs(t, repo.Archive(context.Background(), "", domain.LiveSummaryData{}), ErrEmptyLiveID)

	_, err := repo.ListByLive(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrEmptyLiveID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.ArchiveConfig{Driver: "oracle"})
	assert.Error(t, err)
}
