package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pairly/pairly-backend/internal/db"
)

// UserRepository provides data access for user records and their
// matchmaking state.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// EnsureUser returns the user row, creating it on first contact.
//
// Behavior:
//   - New user → row created in IDLE state with the given attributes.
//   - Existing user → gender and preference are refreshed if they changed
//     (clients may update their profile between searches).
func (r *UserRepository) EnsureUser(ctx context.Context, userID uint64, gender string, genderPref *string) (*db.User, error) {
	var user db.User
	defaults := db.User{
		UserID:           userID,
		Gender:           gender,
		GenderPreference: genderPref,
		CurrentState:     db.StateIdle,
	}

	// Attrs keeps the defaults out of the lookup: the query matches on
	// user_id alone, so an existing row is found whatever state it is in.
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Attrs(defaults).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}

	if user.Gender != gender || !equalPref(user.GenderPreference, genderPref) {
		updates := map[string]interface{}{
			"gender":            gender,
			"gender_preference": genderPref,
		}
		if err := r.db.WithContext(ctx).
			Model(&db.User{}).
			Where("user_id = ?", userID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
		user.Gender = gender
		user.GenderPreference = genderPref
	}

	return &user, nil
}

// Get returns a user row, or nil if unknown.
func (r *UserRepository) Get(ctx context.Context, userID uint64) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetState writes a user's matchmaking state and partner on the caller's
// handle. The match coordinator and chat teardown pass their open
// transaction; pool join/leave pass the plain connection.
func (r *UserRepository) SetState(tx *gorm.DB, userID uint64, state string, partnerID *uint64) error {
	return tx.Model(&db.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_state": state,
			"partner_id":    partnerID,
		}).Error
}

// MarkWaiting flips a user to WAITING unless a concurrently committed match
// already moved them to CHATTING. The pool write and the state write are not
// one transaction, so a matcher can claim the user in between; the committed
// match must win over the late state write.
func (r *UserRepository) MarkWaiting(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ? AND current_state <> ?", userID, db.StateChatting).
		Update("current_state", db.StateWaiting).Error
}

// ClearWaiting returns a WAITING user to IDLE. Users in any other state are
// left untouched, so a pool leave that races a committed match stays a no-op.
func (r *UserRepository) ClearWaiting(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("user_id = ? AND current_state = ?", userID, db.StateWaiting).
		Update("current_state", db.StateIdle).Error
}

// Count returns the total number of known users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Count(&count).Error
	return count, err
}

func equalPref(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
