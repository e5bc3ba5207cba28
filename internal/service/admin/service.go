package admin

import (
	"context"
	"time"

	"github.com/pairly/pairly-backend/internal/app"
	"github.com/pairly/pairly-backend/internal/db"
	"github.com/pairly/pairly-backend/internal/repository"
	"github.com/pairly/pairly-backend/internal/service/moderation"
)

// Stats is the operator dashboard snapshot.
type Stats struct {
	TotalUsers   int64 `json:"total_users"`
	Waiting      int64 `json:"waiting"`
	ActiveChats  int64 `json:"active_chats"`
	BannedUsers  int64 `json:"banned_users"`
	TotalRatings int64 `json:"total_ratings"`
}

// Service backs the token-guarded admin surface: stats, chat listing and
// ban management.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	pool    *repository.PoolRepository
	chats   *repository.ChatRepository
	bans    *repository.BanRepository
	ratings *repository.RatingRepository
	mod     *moderation.Service
}

// NewService creates the admin service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, mod *moderation.Service) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		pool:    repository.NewPoolRepository(appCtx.DB),
		chats:   repository.NewChatRepository(appCtx.DB),
		bans:    repository.NewBanRepository(appCtx.DB),
		ratings: repository.NewRatingRepository(appCtx.DB),
		mod:     mod,
	}
}

// Stats returns dashboard counters. Each counter is cached in Redis with a
// short TTL; a cache fault falls through to the DB.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counters := []struct {
		name  string
		dest  *int64
		fetch func(context.Context) (int64, error)
	}{
		{"total_users", &stats.TotalUsers, s.users.Count},
		{"waiting", &stats.Waiting, s.pool.Size},
		{"active_chats", &stats.ActiveChats, s.chats.Count},
		{"banned_users", &stats.BannedUsers, s.bans.CountActive},
		{"total_ratings", &stats.TotalRatings, s.ratings.Count},
	}

	for _, c := range counters {
		if cached, found, err := s.appCtx.RedisCache.GetStat(ctx, c.name); err == nil && found {
			*c.dest = cached
			continue
		}

		count, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		*c.dest = count
		if err := s.appCtx.RedisCache.SetStat(ctx, c.name, count); err != nil {
			s.appCtx.Logger.Warn("stat cache write failed", "stat", c.name, "err", err)
		}
	}

	return stats, nil
}

// Chats lists active chats newest-first with cursor pagination.
func (s *Service) Chats(ctx context.Context, pageToken *string, limit int) ([]db.ActiveChat, *string, error) {
	return s.chats.List(ctx, pageToken, limit)
}

// Ban blocks a user for the given number of hours.
func (s *Service) Ban(ctx context.Context, userID uint64, hours int, reason string) error {
	return s.mod.Ban(ctx, userID, time.Duration(hours)*time.Hour, reason)
}

// Unban lifts a user's ban.
func (s *Service) Unban(ctx context.Context, userID uint64) error {
	return s.mod.Unban(ctx, userID)
}
