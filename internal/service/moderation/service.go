package moderation

import (
	"context"
	"time"

	"github.com/pairly/pairly-backend/internal/app"
	"github.com/pairly/pairly-backend/internal/repository"
)

// Service enforces bans. Verdicts are cached in Redis under ban:<id> with a
// TTL clamped to the remaining ban duration; the bans table stays the source
// of truth.
type Service struct {
	appCtx *app.AppContext
	bans   *repository.BanRepository
}

// NewService creates the moderation service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		bans:   repository.NewBanRepository(appCtx.DB),
	}
}

// IsBanned reports whether the user currently has an active ban.
// Cache-first: Redis hit short-circuits; on a miss the DB verdict is cached.
// A Redis fault degrades to a DB lookup rather than failing the check.
func (s *Service) IsBanned(ctx context.Context, userID uint64) (bool, error) {
	banned, found, err := s.appCtx.RedisCache.GetBanned(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Warn("ban cache read failed", "user_id", userID, "err", err)
	} else if found {
		return banned, nil
	}

	ban, err := s.bans.ActiveBan(ctx, userID)
	if err != nil {
		return false, err
	}
	if ban == nil {
		return false, nil
	}

	if err := s.appCtx.RedisCache.SetBanned(ctx, userID, ban.BannedUntil); err != nil {
		s.appCtx.Logger.Warn("ban cache write failed", "user_id", userID, "err", err)
	}
	return true, nil
}

// Ban blocks a user for the given duration, replacing any existing ban.
func (s *Service) Ban(ctx context.Context, userID uint64, d time.Duration, reason string) error {
	until := time.Now().UTC().Add(d)
	if err := s.bans.Upsert(ctx, userID, reason, until); err != nil {
		return err
	}
	if err := s.appCtx.RedisCache.SetBanned(ctx, userID, until); err != nil {
		s.appCtx.Logger.Warn("ban cache write failed", "user_id", userID, "err", err)
	}

	s.appCtx.Logger.Info("user banned",
		"user_id", userID, "until", until, "reason", reason)
	return nil
}

// Unban lifts a user's ban and drops the cached verdict. Idempotent.
func (s *Service) Unban(ctx context.Context, userID uint64) error {
	if err := s.bans.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.appCtx.RedisCache.ClearBan(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("ban cache clear failed", "user_id", userID, "err", err)
	}

	s.appCtx.Logger.Info("user unbanned", "user_id", userID)
	return nil
}

// CleanExpired removes bans that have run out. Intended for a periodic job;
// correctness never depends on it since reads filter by banned_until.
func (s *Service) CleanExpired(ctx context.Context) (int64, error) {
	return s.bans.CleanExpired(ctx)
}
