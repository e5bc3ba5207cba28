package moderation_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pairly/pairly-backend/internal/app"
	"github.com/pairly/pairly-backend/internal/cache"
	"github.com/pairly/pairly-backend/internal/config"
	"github.com/pairly/pairly-backend/internal/db"
	"github.com/pairly/pairly-backend/internal/service/moderation"
)

func setupModeration(t *testing.T) (*moderation.Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	appCtx := app.New(dbase, cache.NewRedisCache(cfg),
		slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	return moderation.NewService(appCtx), dbase, mr
}

func TestBanThenIsBanned(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupModeration(t)

	banned, err := svc.IsBanned(ctx, 5)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, svc.Ban(ctx, 5, time.Hour, "abuse"))

	banned, err = svc.IsBanned(ctx, 5)
	require.NoError(t, err)
	assert.True(t, banned)

	// positive verdict lands in the cache
	assert.True(t, mr.Exists("ban:5"))
}

func TestUnbanIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupModeration(t)

	require.NoError(t, svc.Ban(ctx, 5, time.Hour, "abuse"))
	require.NoError(t, svc.Unban(ctx, 5))
	require.NoError(t, svc.Unban(ctx, 5)) // second unban is a no-op

	banned, err := svc.IsBanned(ctx, 5)
	require.NoError(t, err)
	assert.False(t, banned)
	assert.False(t, mr.Exists("ban:5"))
}

func TestExpiredBanDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupModeration(t)

	// the ban already ran out; nothing gets cached and the DB filter skips it
	require.NoError(t, svc.Ban(ctx, 5, -time.Minute, "old offense"))

	banned, err := svc.IsBanned(ctx, 5)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestIsBannedPrefersCache(t *testing.T) {
	ctx := context.Background()
	svc, dbase, _ := setupModeration(t)

	require.NoError(t, svc.Ban(ctx, 5, time.Hour, "abuse"))

	// drop the DB row behind the cache's back; the cached verdict still wins
	require.NoError(t, dbase.Where("user_id = ?", 5).Delete(&db.Ban{}).Error)

	banned, err := svc.IsBanned(ctx, 5)
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestIsBannedFallsBackToDatabase(t *testing.T) {
	ctx := context.Background()
	svc, _, mr := setupModeration(t)

	require.NoError(t, svc.Ban(ctx, 5, time.Hour, "abuse"))

	// Redis goes away; the verdict must still come from the bans table
	mr.Close()

	banned, err := svc.IsBanned(ctx, 5)
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestCleanExpired(t *testing.T) {
	ctx := context.Background()
	svc, dbase, _ := setupModeration(t)

	require.NoError(t, svc.Ban(ctx, 1, -time.Hour, "served"))
	require.NoError(t, svc.Ban(ctx, 2, time.Hour, "active"))

	removed, err := svc.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var remaining []db.Ban
	require.NoError(t, dbase.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, uint64(2), remaining[0].UserID)
}
