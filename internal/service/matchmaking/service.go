package matchmaking

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pairly/pairly-backend/internal/app"
	"github.com/pairly/pairly-backend/internal/db"
	svcErr "github.com/pairly/pairly-backend/internal/errors"
	"github.com/pairly/pairly-backend/internal/repository"
	"github.com/pairly/pairly-backend/internal/service/moderation"
)

// Outcome is the explicit result of a find-and-match call. Losing a race or
// finding nobody eligible are normal outcomes, never errors.
type Outcome string

const (
	OutcomeMatched Outcome = "matched"
	OutcomeWaiting Outcome = "waiting"
)

// MatchResult is what a find-and-match call resolves to.
type MatchResult struct {
	Outcome   Outcome
	ChatID    uint64
	PartnerID uint64
}

// JoinParams are the attributes a user supplies when entering the pool.
type JoinParams struct {
	UserID           uint64
	Gender           string
	GenderPreference *string
}

// Service implements the matchmaking engine: pool membership, candidate
// selection and the atomic waiting -> chatting transition.
type Service struct {
	appCtx     *app.AppContext
	pool       *repository.PoolRepository
	history    *repository.HistoryRepository
	chats      *repository.ChatRepository
	users      *repository.UserRepository
	ratings    *repository.RatingRepository
	moderation *moderation.Service
	selector   *Selector

	maxAttempts int
	minRatings  int
}

// NewService creates the matchmaking service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, mod *moderation.Service) *Service {
	return &Service{
		appCtx:      appCtx,
		pool:        repository.NewPoolRepository(appCtx.DB),
		history:     repository.NewHistoryRepository(appCtx.DB),
		chats:       repository.NewChatRepository(appCtx.DB),
		users:       repository.NewUserRepository(appCtx.DB),
		ratings:     repository.NewRatingRepository(appCtx.DB),
		moderation:  mod,
		selector:    NewSelector(appCtx.Config.Match.WaitingBonus),
		maxAttempts: appCtx.Config.Match.MaxAttempts,
		minRatings:  appCtx.Config.Match.MinRatingsForDisplay,
	}
}

// JoinPool admits a user into the waiting pool and immediately attempts a
// match for them.
//
// Behavior:
//   - Banned users are rejected before admission.
//   - A user already in a chat cannot join (they must end the chat first).
//   - Re-joining while already waiting refreshes the entry; no error.
//   - On success the result is either Matched (with chat and partner) or
//     Waiting (user stays in the pool).
func (s *Service) JoinPool(ctx context.Context, p JoinParams) (*MatchResult, error) {
	banned, err := s.moderation.IsBanned(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, svcErr.Forbidden("user is banned")
	}

	user, err := s.users.EnsureUser(ctx, p.UserID, p.Gender, p.GenderPreference)
	if err != nil {
		return nil, err
	}
	if user.CurrentState == db.StateChatting {
		return nil, svcErr.Conflict("user is already in a chat")
	}

	rating, ratingCount, err := s.ratings.AverageFor(ctx, p.UserID, s.minRatings)
	if err != nil {
		return nil, err
	}

	entry := db.WaitingUser{
		UserID:           p.UserID,
		Gender:           p.Gender,
		IsPremium:        user.IsPremium,
		Rating:           rating,
		RatingCount:      ratingCount,
		GenderPreference: p.GenderPreference,
	}
	if err := s.pool.Join(ctx, entry); err != nil {
		return nil, err
	}
	// Conditional write: a matcher that claimed the user between the pool
	// write and here has already committed CHATTING, and that wins.
	if err := s.users.MarkWaiting(ctx, p.UserID); err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("user joined pool", "user_id", p.UserID)

	return s.FindAndMatch(ctx, p.UserID)
}

// LeavePool removes a user from the pool. Idempotent: leaving twice, or
// leaving after a concurrent match already claimed the user, is a no-op
// (the committed match wins).
func (s *Service) LeavePool(ctx context.Context, userID uint64) error {
	if err := s.pool.Leave(ctx, userID); err != nil {
		return err
	}
	// Only a user still flagged WAITING goes back to IDLE; a concurrently
	// committed match has already moved them to CHATTING.
	if err := s.users.ClearWaiting(ctx, userID); err != nil {
		return err
	}
	s.appCtx.Logger.Info("user left pool", "user_id", userID)
	return nil
}

// FindAndMatch runs candidate selection for a waiting user and attempts the
// match transaction against the best candidates, bounded by the configured
// attempt cap.
//
// A candidate that loses the race is skipped for this invocation only; a
// storage failure on one attempt is logged and treated the same way. When
// no candidate commits, the user simply stays in the pool.
func (s *Service) FindAndMatch(ctx context.Context, userID uint64) (*MatchResult, error) {
	snapshot, err := s.pool.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var requester *db.WaitingUser
	for i := range snapshot {
		if snapshot[i].UserID == userID {
			requester = &snapshot[i]
			break
		}
	}
	if requester == nil {
		// Claimed by a concurrent matcher, or never joined. Nothing to do.
		return &MatchResult{Outcome: OutcomeWaiting}, nil
	}

	recent, err := s.history.RecentPartners(ctx, userID, s.appCtx.Config.Match.Window)
	if err != nil {
		return nil, err
	}

	candidates := s.selector.Select(*requester, snapshot, recent)
	if len(candidates) == 0 {
		return &MatchResult{Outcome: OutcomeWaiting}, nil
	}

	attempts := s.maxAttempts
	if attempts > len(candidates) {
		attempts = len(candidates)
	}
	for _, cand := range candidates[:attempts] {
		chatID, err := s.attemptMatch(ctx, userID, cand.UserID)
		if errors.Is(err, errLostRace) {
			continue
		}
		if err != nil {
			// Storage fault. Safe to retry with the next candidate, but
			// keep it observable.
			s.appCtx.Logger.Error("match attempt failed",
				"user_id", userID, "candidate_id", cand.UserID, "err", err)
			continue
		}

		s.appCtx.Logger.Info("match created",
			"chat_id", chatID, "user_a", userID, "user_b", cand.UserID)
		return &MatchResult{
			Outcome:   OutcomeMatched,
			ChatID:    chatID,
			PartnerID: cand.UserID,
		}, nil
	}

	return &MatchResult{Outcome: OutcomeWaiting}, nil
}

// ActiveChat returns the chat the user currently participates in, or nil.
func (s *Service) ActiveChat(ctx context.Context, userID uint64) (*db.ActiveChat, error) {
	return s.chats.ActiveChatForUser(ctx, userID)
}

// EndChat tears a chat down: the row is deleted and both participants go
// back to IDLE with no partner, all in one transaction.
func (s *Service) EndChat(ctx context.Context, chatID uint64) error {
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat db.ActiveChat
		if err := tx.First(&chat, chatID).Error; err != nil {
			return err
		}

		if _, err := s.chats.Delete(tx, chatID); err != nil {
			return err
		}
		if err := s.users.SetState(tx, chat.UserA, db.StateIdle, nil); err != nil {
			return err
		}
		return s.users.SetState(tx, chat.UserB, db.StateIdle, nil)
	})
	if err != nil {
		return err
	}

	s.appCtx.Logger.Info("chat ended", "chat_id", chatID)
	return nil
}

// Rate records a 1..5 rating from rater to rated. Only users who actually
// chatted (a match history row exists) may rate each other.
func (s *Service) Rate(ctx context.Context, raterID, ratedID uint64, value int) error {
	if raterID == ratedID {
		return svcErr.InvalidArgument("cannot rate yourself")
	}
	if value < 1 || value > 5 {
		return svcErr.InvalidArgument("rating must be between 1 and 5")
	}

	matchedAt, err := s.history.LastMatchedAt(ctx, raterID, ratedID)
	if err != nil {
		return err
	}
	if matchedAt == nil {
		return svcErr.Forbidden(fmt.Sprintf("no chat with user %d to rate", ratedID))
	}

	return s.ratings.Add(ctx, ratedID, raterID, value)
}
