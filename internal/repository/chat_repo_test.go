package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/pairly/pairly-backend/internal/db"
	"github.com/pairly/pairly-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveChatForUser(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	chat := &db.ActiveChat{UserA: 1, UserB: 2}
	require.NoError(t, repo.Create(dbase, chat))
	assert.NotZero(t, chat.ChatID, "chat_id should be assigned")

	// both sides find the same chat
	forA, err := repo.ActiveChatForUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, forA)
	assert.Equal(t, chat.ChatID, forA.ChatID)

	forB, err := repo.ActiveChatForUser(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, forB)
	assert.Equal(t, chat.ChatID, forB.ChatID)

	// bystanders find nothing, without error
	forC, err := repo.ActiveChatForUser(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, forC)
}

func TestChatIDsAreMonotonic(t *testing.T) {
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	first := &db.ActiveChat{UserA: 1, UserB: 2}
	require.NoError(t, repo.Create(dbase, first))

	second := &db.ActiveChat{UserA: 3, UserB: 4}
	require.NoError(t, repo.Create(dbase, second))

	assert.Greater(t, second.ChatID, first.ChatID)
}

func TestChatDelete(t *testing.T) {
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	chat := &db.ActiveChat{UserA: 1, UserB: 2}
	require.NoError(t, repo.Create(dbase, chat))

	affected, err := repo.Delete(dbase, chat.ChatID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// deleting again is a no-op
	affected, err = repo.Delete(dbase, chat.ChatID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestChatListPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		chat := &db.ActiveChat{
			UserA:     uint64(i*2 + 1),
			UserB:     uint64(i*2 + 2),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(dbase, chat))
	}

	// first page, newest first
	page1, next, err := repo.List(ctx, nil, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotNil(t, next)
	assert.True(t, page1[0].StartedAt.After(page1[2].StartedAt))

	// second page picks up where the cursor left off
	page2, next2, err := repo.List(ctx, next, 3)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Nil(t, next2)

	// no overlap between pages
	seen := map[uint64]bool{}
	for _, c := range append(page1, page2...) {
		assert.False(t, seen[c.ChatID], "chat %d returned twice", c.ChatID)
		seen[c.ChatID] = true
	}
}
