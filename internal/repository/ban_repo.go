package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pairly/pairly-backend/internal/db"
)

// BanRepository provides data access for moderation bans.
type BanRepository struct {
	db *gorm.DB
}

// NewBanRepository creates a new repository bound to the given DB connection.
func NewBanRepository(database *gorm.DB) *BanRepository {
	return &BanRepository{db: database}
}

// Upsert bans a user until the given time, replacing any existing ban.
func (r *BanRepository) Upsert(ctx context.Context, userID uint64, reason string, until time.Time) error {
	ban := db.Ban{
		UserID:      userID,
		Reason:      reason,
		BannedUntil: until,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "banned_until"}),
		}).
		Create(&ban).Error
}

// Delete lifts a user's ban. Deleting an absent ban is a no-op.
func (r *BanRepository) Delete(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.Ban{}).Error
}

// ActiveBan returns the user's ban if it has not expired yet, nil otherwise.
func (r *BanRepository) ActiveBan(ctx context.Context, userID uint64) (*db.Ban, error) {
	var ban db.Ban
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND banned_until > ?", userID, time.Now().UTC()).
		First(&ban).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

// CleanExpired removes bans whose end time has passed. Run periodically.
func (r *BanRepository) CleanExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("banned_until <= ?", time.Now().UTC()).
		Delete(&db.Ban{})
	return res.RowsAffected, res.Error
}

// CountActive returns the number of currently banned users.
func (r *BanRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Ban{}).
		Where("banned_until > ?", time.Now().UTC()).
		Count(&count).Error
	return count, err
}
