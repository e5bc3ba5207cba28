package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pairly/pairly-backend/internal/db"
)

// HistoryRepository provides data access for the match history store.
// History holds only the last-matched timestamp per directed pair; it is a
// recency filter, not a match log.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new repository bound to the given DB connection.
func NewHistoryRepository(database *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: database}
}

// RecentPartners returns the set of users matched with userID within the
// given window of now.
//
// Example:
//
//	repo.RecentPartners(ctx, 42, 30*time.Minute) // -> {17: {}, 99: {}}
func (r *HistoryRepository) RecentPartners(ctx context.Context, userID uint64, window time.Duration) (map[uint64]struct{}, error) {
	cutoff := time.Now().UTC().Add(-window)

	var partnerIDs []uint64
	err := r.db.WithContext(ctx).
		Model(&db.MatchHistory{}).
		Where("user_id = ? AND last_matched_at > ?", userID, cutoff).
		Pluck("partner_id", &partnerIDs).Error
	if err != nil {
		return nil, err
	}

	recent := make(map[uint64]struct{}, len(partnerIDs))
	for _, id := range partnerIDs {
		recent[id] = struct{}{}
	}
	return recent, nil
}

// RecordMatch upserts both directions of a pairing with the same timestamp.
//
// It runs on the *gorm.DB handle passed in — the match coordinator hands it
// the open match transaction, so both rows land atomically with the rest of
// the match. Never call this with a bare connection outside a transaction.
func (r *HistoryRepository) RecordMatch(tx *gorm.DB, userA, userB uint64, at time.Time) error {
	rows := []db.MatchHistory{
		{UserID: userA, PartnerID: userB, LastMatchedAt: at},
		{UserID: userB, PartnerID: userA, LastMatchedAt: at},
	}
	return tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "partner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_matched_at"}),
		}).
		Create(&rows).Error
}

// LastMatchedAt returns the timestamp of the most recent pairing of the two
// users, or nil if they were never matched.
func (r *HistoryRepository) LastMatchedAt(ctx context.Context, userA, userB uint64) (*time.Time, error) {
	var row db.MatchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND partner_id = ?", userA, userB).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row.LastMatchedAt, nil
}
