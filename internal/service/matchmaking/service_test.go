package matchmaking_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
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
	svcErr "github.com/pairly/pairly-backend/internal/errors"
	"github.com/pairly/pairly-backend/internal/service/matchmaking"
	"github.com/pairly/pairly-backend/internal/service/moderation"
)

// setupService spins up an in-memory SQLite DB, applies migrations, starts a
// miniredis, and wires everything into a matchmaking Service.
//
// Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*matchmaking.Service, *moderation.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	// Fake Redis
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(dbase, redisCache, logger, cfg)
	mod := moderation.NewService(appCtx)
	return matchmaking.NewService(appCtx, mod), mod, dbase
}

func join(t *testing.T, svc *matchmaking.Service, userID uint64, gender string) *matchmaking.MatchResult {
	t.Helper()
	res, err := svc.JoinPool(context.Background(), matchmaking.JoinParams{
		UserID: userID,
		Gender: gender,
	})
	require.NoError(t, err)
	return res
}

func loadUser(t *testing.T, dbase *gorm.DB, userID uint64) db.User {
	t.Helper()
	var u db.User
	require.NoError(t, dbase.Where("user_id = ?", userID).First(&u).Error)
	return u
}

// TestJoinAndMatchPairsTwoUsers covers the happy path: two compatible users
// join, the second join produces a match, and every table reflects it.
func TestJoinAndMatchPairsTwoUsers(t *testing.T) {
	svc, _, dbase := setupService(t)

	resA := join(t, svc, 1, "male")
	assert.Equal(t, matchmaking.OutcomeWaiting, resA.Outcome, "nobody else waiting yet")

	resB := join(t, svc, 2, "female")
	require.Equal(t, matchmaking.OutcomeMatched, resB.Outcome)
	assert.NotZero(t, resB.ChatID)
	assert.Equal(t, uint64(1), resB.PartnerID)

	// pool drained
	var poolCount int64
	require.NoError(t, dbase.Model(&db.WaitingUser{}).Count(&poolCount).Error)
	assert.Equal(t, int64(0), poolCount)

	// exactly one chat
	var chats []db.ActiveChat
	require.NoError(t, dbase.Find(&chats).Error)
	require.Len(t, chats, 1)

	// both users chatting with each other
	userA := loadUser(t, dbase, 1)
	userB := loadUser(t, dbase, 2)
	assert.Equal(t, db.StateChatting, userA.CurrentState)
	assert.Equal(t, db.StateChatting, userB.CurrentState)
	require.NotNil(t, userA.PartnerID)
	require.NotNil(t, userB.PartnerID)
	assert.Equal(t, uint64(2), *userA.PartnerID)
	assert.Equal(t, uint64(1), *userB.PartnerID)

	// history written symmetrically
	var histCount int64
	require.NoError(t, dbase.Model(&db.MatchHistory{}).Count(&histCount).Error)
	assert.Equal(t, int64(2), histCount)
}

// TestAntiRepeatWindow verifies that a freshly matched pair cannot be
// re-paired until the history window has passed, no matter how often they
// re-join.
func TestAntiRepeatWindow(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupService(t)

	join(t, svc, 1, "male")
	res := join(t, svc, 2, "female")
	require.Equal(t, matchmaking.OutcomeMatched, res.Outcome)

	require.NoError(t, svc.EndChat(ctx, res.ChatID))

	// both re-join inside the window -> no candidate for either
	resA := join(t, svc, 1, "male")
	assert.Equal(t, matchmaking.OutcomeWaiting, resA.Outcome)
	resB := join(t, svc, 2, "female")
	assert.Equal(t, matchmaking.OutcomeWaiting, resB.Outcome, "recent partner must be filtered out")

	// age the history past the window; now they pair again
	past := time.Now().UTC().Add(-31 * time.Minute)
	require.NoError(t, dbase.Model(&db.MatchHistory{}).
		Where("1 = 1").
		Update("last_matched_at", past).Error)

	res2, err := svc.FindAndMatch(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, matchmaking.OutcomeMatched, res2.Outcome)
	assert.Equal(t, uint64(2), res2.PartnerID)
}

// TestJoinWhileChattingRejected: a user inside a live chat cannot re-enter
// the pool until the chat ends.
func TestJoinWhileChattingRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	join(t, svc, 1, "male")
	res := join(t, svc, 2, "female")
	require.Equal(t, matchmaking.OutcomeMatched, res.Outcome)

	_, err := svc.JoinPool(ctx, matchmaking.JoinParams{UserID: 1, Gender: "male"})
	require.Error(t, err)

	var apiErr *svcErr.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

// TestBannedUserCannotJoin: the ban check runs before pool admission.
func TestBannedUserCannotJoin(t *testing.T) {
	ctx := context.Background()
	svc, mod, dbase := setupService(t)

	require.NoError(t, mod.Ban(ctx, 9, time.Hour, "spam"))

	_, err := svc.JoinPool(ctx, matchmaking.JoinParams{UserID: 9, Gender: "male"})
	require.Error(t, err)

	var apiErr *svcErr.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	var poolCount int64
	require.NoError(t, dbase.Model(&db.WaitingUser{}).Count(&poolCount).Error)
	assert.Equal(t, int64(0), poolCount, "banned user must not reach the pool")
}

// TestLeavePoolIsIdempotent: leaving twice, or without ever joining, never
// errors, and a waiting user drops back to IDLE.
func TestLeavePoolIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupService(t)

	join(t, svc, 1, "male")

	require.NoError(t, svc.LeavePool(ctx, 1))
	require.NoError(t, svc.LeavePool(ctx, 1))
	require.NoError(t, svc.LeavePool(ctx, 404)) // never joined

	user := loadUser(t, dbase, 1)
	assert.Equal(t, db.StateIdle, user.CurrentState)

	res, err := svc.FindAndMatch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, matchmaking.OutcomeWaiting, res.Outcome)
}

// TestLeaveAfterMatchIsNoop: a cancellation racing a committed match loses;
// the chat and CHATTING state survive the late leave.
func TestLeaveAfterMatchIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupService(t)

	join(t, svc, 1, "male")
	res := join(t, svc, 2, "female")
	require.Equal(t, matchmaking.OutcomeMatched, res.Outcome)

	require.NoError(t, svc.LeavePool(ctx, 1))

	user := loadUser(t, dbase, 1)
	assert.Equal(t, db.StateChatting, user.CurrentState, "committed match wins over a late leave")

	chat, err := svc.ActiveChat(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, chat)
}

// TestEndChatResetsBothUsers verifies teardown: row deleted, both users IDLE
// with no partner.
func TestEndChatResetsBothUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupService(t)

	join(t, svc, 1, "male")
	res := join(t, svc, 2, "female")
	require.Equal(t, matchmaking.OutcomeMatched, res.Outcome)

	require.NoError(t, svc.EndChat(ctx, res.ChatID))

	for _, id := range []uint64{1, 2} {
		user := loadUser(t, dbase, id)
		assert.Equal(t, db.StateIdle, user.CurrentState)
		assert.Nil(t, user.PartnerID)
	}

	chat, err := svc.ActiveChat(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, chat)

	// ending a dead chat is an error (not silently swallowed)
	err = svc.EndChat(ctx, res.ChatID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

// TestRateRequiresPriorMatch: only users who actually chatted may rate each
// other.
func TestRateRequiresPriorMatch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	err := svc.Rate(ctx, 1, 2, 5)
	require.Error(t, err, "no shared chat yet")

	join(t, svc, 1, "male")
	res := join(t, svc, 2, "female")
	require.Equal(t, matchmaking.OutcomeMatched, res.Outcome)
	require.NoError(t, svc.EndChat(ctx, res.ChatID))

	assert.NoError(t, svc.Rate(ctx, 1, 2, 5))
	assert.NoError(t, svc.Rate(ctx, 2, 1, 4))

	// validation
	assert.Error(t, svc.Rate(ctx, 1, 1, 5), "self-rating rejected")
	assert.Error(t, svc.Rate(ctx, 1, 2, 6), "out-of-range rating rejected")
}

// TestFindAndMatchForAbsentUser: a user who is not in the pool gets a quiet
// waiting result, never an error.
func TestFindAndMatchForAbsentUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	res, err := svc.FindAndMatch(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, matchmaking.OutcomeWaiting, res.Outcome)
}

// TestRejoinRefreshesEntry: joining twice with different attributes leaves
// exactly one pool entry carrying the latest attributes.
func TestRejoinRefreshesEntry(t *testing.T) {
	ctx := context.Background()
	svc, _, dbase := setupService(t)

	join(t, svc, 1, "male")

	pref := "female"
	_, err := svc.JoinPool(ctx, matchmaking.JoinParams{
		UserID:           1,
		Gender:           "male",
		GenderPreference: &pref,
	})
	require.NoError(t, err)

	var entries []db.WaitingUser
	require.NoError(t, dbase.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].GenderPreference)
	assert.Equal(t, "female", *entries[0].GenderPreference)
}
