package matchmaking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pairly/pairly-backend/internal/db"
)

// errLostRace signals that another matcher claimed one of the candidates
// between selection and transaction start. It is a normal concurrent
// outcome, not a failure.
var errLostRace = errors.New("candidate already claimed")

// attemptMatch moves two users from waiting to chatting as one atomic unit.
//
// Inside a single transaction it:
//  1. Deletes both waiting rows. RowsAffected == 0 on either delete means a
//     concurrent matcher already claimed that user; the whole transaction
//     aborts with errLostRace and nothing is modified.
//  2. Creates the active chat row (fresh monotonic chat_id).
//  3. Flips both users to CHATTING with each other's ID as partner.
//  4. Upserts the match history symmetrically with the same timestamp.
//
// Of N concurrent attempts racing over the same pair, exactly one commits;
// the rest observe step 1 and abort cleanly. This is the only code path
// that creates an ActiveChat row or sets CHATTING.
func (s *Service) attemptMatch(ctx context.Context, userA, userB uint64) (uint64, error) {
	var chatID uint64

	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []uint64{userA, userB} {
			res := tx.Where("user_id = ?", id).Delete(&db.WaitingUser{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errLostRace
			}
		}

		now := time.Now().UTC()

		chat := db.ActiveChat{UserA: userA, UserB: userB, StartedAt: now}
		if err := s.chats.Create(tx, &chat); err != nil {
			return err
		}

		if err := s.users.SetState(tx, userA, db.StateChatting, &userB); err != nil {
			return err
		}
		if err := s.users.SetState(tx, userB, db.StateChatting, &userA); err != nil {
			return err
		}

		if err := s.history.RecordMatch(tx, userA, userB, now); err != nil {
			return err
		}

		chatID = chat.ChatID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return chatID, nil
}
