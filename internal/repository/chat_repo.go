package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pairly/pairly-backend/internal/db"
	"github.com/pairly/pairly-backend/internal/utils/pagination"
)

// ChatRepository provides data access for the active chat registry.
//
// Rows are created only inside the match coordinator's transaction and
// removed only by teardown; everything else is read-only.
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new repository bound to the given DB connection.
func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// Create inserts a new active chat row on the caller's transaction handle.
// The match coordinator is the only legitimate caller.
func (r *ChatRepository) Create(tx *gorm.DB, chat *db.ActiveChat) error {
	if chat.StartedAt.IsZero() {
		chat.StartedAt = time.Now().UTC()
	}
	return tx.Create(chat).Error
}

// ActiveChatForUser returns the chat the user currently participates in,
// or nil if they are not chatting.
func (r *ChatRepository) ActiveChatForUser(ctx context.Context, userID uint64) (*db.ActiveChat, error) {
	var chat db.ActiveChat
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetByID returns a chat by its surrogate key.
func (r *ChatRepository) GetByID(ctx context.Context, chatID uint64) (*db.ActiveChat, error) {
	var chat db.ActiveChat
	err := r.db.WithContext(ctx).First(&chat, chatID).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// Delete removes a chat row on the caller's transaction handle.
// Used by teardown together with the user-state reset.
func (r *ChatRepository) Delete(tx *gorm.DB, chatID uint64) (int64, error) {
	res := tx.Delete(&db.ActiveChat{}, chatID)
	return res.RowsAffected, res.Error
}

// List returns active chats newest-first with cursor-based pagination.
//
// Behavior:
//   - Ordered by started_at DESC, chat_id DESC.
//   - Returns up to limit rows plus an opaque next-page token when more
//     rows remain.
//
// Example:
//
//	repo.List(ctx, nil, 20) // first 20 live chats
func (r *ChatRepository) List(
	ctx context.Context,
	pageToken *string,
	limit int,
) ([]db.ActiveChat, *string, error) {
	var chats []db.ActiveChat

	cursor, err := pagination.Decode(getString(pageToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.ActiveChat{}).
		Order("started_at DESC, chat_id DESC").
		Limit(limit + 1)

	if cursor.ChatID > 0 && cursor.StartedUnix > 0 {
		ts := time.UnixMilli(cursor.StartedUnix)
		query = query.Where(
			"(started_at < ? OR (started_at = ? AND chat_id < ?))",
			ts, ts, cursor.ChatID,
		)
	}

	if err := query.Find(&chats).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(chats) > limit {
		last := chats[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ChatID:      last.ChatID,
			StartedUnix: last.StartedAt.UnixMilli(),
		})
		nextToken = &token
		chats = chats[:limit]
	}

	return chats, nextToken, nil
}

// Count returns the number of live chats.
func (r *ChatRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.ActiveChat{}).Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
