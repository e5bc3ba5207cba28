package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pairly/pairly-backend/internal/db"
)

// RatingRepository provides data access for post-chat ratings.
type RatingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a new repository bound to the given DB connection.
func NewRatingRepository(database *gorm.DB) *RatingRepository {
	return &RatingRepository{db: database}
}

// Add inserts or overwrites the rating rater -> rated.
func (r *RatingRepository) Add(ctx context.Context, ratedID, raterID uint64, value int) error {
	rating := db.Rating{
		RatedID: ratedID,
		RaterID: raterID,
		Rating:  value,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rated_id"}, {Name: "rater_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating"}),
		}).
		Create(&rating).Error
}

// AverageFor returns the user's average rating and rating count.
//
// The average is nil until the user has at least minCount ratings, so thin
// samples never influence display or candidate ranking.
func (r *RatingRepository) AverageFor(ctx context.Context, userID uint64, minCount int) (*float64, int, error) {
	var agg struct {
		Avg   *float64
		Count int
	}
	err := r.db.WithContext(ctx).
		Model(&db.Rating{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("rated_id = ?", userID).
		Scan(&agg).Error
	if err != nil {
		return nil, 0, err
	}

	if agg.Count < minCount {
		return nil, agg.Count, nil
	}
	return agg.Avg, agg.Count, nil
}

// Count returns the total number of ratings ever recorded.
func (r *RatingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Rating{}).Count(&count).Error
	return count, err
}
