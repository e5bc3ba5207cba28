package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pairly/pairly-backend/internal/db"
)

// PoolRepository provides data access for the waiting pool.
// Membership is durable: a user who joined stays discoverable across
// restarts until matched or explicitly removed.
type PoolRepository struct {
	db *gorm.DB
}

// NewPoolRepository creates a new repository bound to the given DB connection.
func NewPoolRepository(database *gorm.DB) *PoolRepository {
	return &PoolRepository{db: database}
}

// Join inserts or refreshes a pool entry keyed by user_id.
//
// Behavior:
//   - First join → new row with joined_at = now.
//   - Re-join (e.g. after a reconnect) → attributes and joined_at are
//     overwritten; never an error, never a duplicate.
//
// Example:
//
//	repo.Join(ctx, db.WaitingUser{UserID: 42, Gender: "male"})
func (r *PoolRepository) Join(ctx context.Context, entry db.WaitingUser) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"gender", "is_premium", "rating", "rating_count",
				"gender_preference", "joined_at",
			}),
		}).
		Create(&entry).Error
}

// Leave removes a user's pool entry. Removing an absent user is a no-op,
// which makes cancellation safe to race against a committing match.
func (r *PoolRepository) Leave(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.WaitingUser{}).Error
}

// Snapshot returns every current pool entry. Ordering is irrelevant here;
// the candidate selector imposes its own ranking.
func (r *PoolRepository) Snapshot(ctx context.Context) ([]db.WaitingUser, error) {
	var entries []db.WaitingUser
	if err := r.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Size returns the number of users currently waiting.
func (r *PoolRepository) Size(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.WaitingUser{}).Count(&count).Error
	return count, err
}
