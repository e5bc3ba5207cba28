package db

import (
	"time"
)

// User states. Transitions: IDLE -> WAITING on pool entry, WAITING -> CHATTING
// on a committed match, CHATTING -> IDLE on chat teardown.
const (
	StateIdle     = "IDLE"
	StateWaiting  = "WAITING"
	StateChatting = "CHATTING"
)

// User table. IDs are supplied by the client (anonymous messenger IDs),
// not auto-generated.
type User struct {
	UserID           uint64  `gorm:"primaryKey;autoIncrement:false"`
	Gender           string  `gorm:"size:16;not null"`
	GenderPreference *string `gorm:"size:16"`
	IsPremium        bool    `gorm:"default:false"`
	CurrentState     string  `gorm:"size:16;not null;default:IDLE"`
	PartnerID        *uint64
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// WaitingUser is one pool entry per user currently searching for a partner.
//
// PK on UserID gives the "at most one entry per user" guarantee and makes
// re-join an overwrite rather than a duplicate.
//
// Rating/RatingCount are denormalized from the ratings table at join time so
// candidate selection never has to aggregate mid-ranking.
type WaitingUser struct {
	UserID           uint64 `gorm:"primaryKey;autoIncrement:false"`
	Gender           string `gorm:"size:16;not null"`
	IsPremium        bool   `gorm:"not null;default:false"`
	Rating           *float64
	RatingCount      int     `gorm:"not null;default:0"`
	GenderPreference *string `gorm:"size:16"`
	JoinedAt         time.Time
}

// MatchHistory records when a pair of users was last matched.
//
// Composite PK: (UserID, PartnerID). Rows are always written symmetrically —
// a match of A and B upserts both (A,B) and (B,A) with the same timestamp —
// so the recency filter is a single indexed lookup from either side.
// Only the latest timestamp per pair is kept; this is a filter, not a log.
type MatchHistory struct {
	UserID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	PartnerID     uint64    `gorm:"primaryKey;autoIncrement:false"`
	LastMatchedAt time.Time `gorm:"not null;index"`
}

// ActiveChat is one row per live pairing.
//
// ChatID is a monotonically increasing surrogate key. The unique indexes on
// UserA and UserB catch duplicate claims within each column; at-most-one-chat
// across both columns is enforced by the transaction coordinator, the only
// writer, via the waiting-row delete guard.
type ActiveChat struct {
	ChatID    uint64    `gorm:"primaryKey;autoIncrement"`
	UserA     uint64    `gorm:"not null;uniqueIndex"`
	UserB     uint64    `gorm:"not null;uniqueIndex"`
	StartedAt time.Time `gorm:"autoCreateTime"`
}

// Ban table. One row per banned user; expired rows are cleaned up lazily.
type Ban struct {
	UserID      uint64    `gorm:"primaryKey;autoIncrement:false"`
	Reason      string    `gorm:"size:255"`
	BannedUntil time.Time `gorm:"not null;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// Rating is one rating given by RaterID to RatedID after a chat.
// Composite PK means re-rating the same person overwrites.
type Rating struct {
	RatedID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	RaterID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	Rating    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
