package matchmaking

import (
	"sort"
	"time"

	"github.com/pairly/pairly-backend/internal/db"
)

// Selector ranks pool candidates for a requester.
//
// It is a pure policy function over a pool snapshot: the hard filters
// (self, recent partners, mutual gender preference) protect the anti-repeat
// invariant, while the ordering below them is tunable without touching the
// transaction coordinator.
//
// Ordering: premium members first, then score = waiting-time bonus
// (one point per WaitingBonus waited) + rating average, with join time and
// user ID as deterministic tie-breakers.
type Selector struct {
	WaitingBonus time.Duration

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

// NewSelector creates a Selector with the given waiting-time bonus interval.
func NewSelector(waitingBonus time.Duration) *Selector {
	return &Selector{
		WaitingBonus: waitingBonus,
		Now:          time.Now,
	}
}

// Select returns eligible candidates for the requester, best first.
//
// An empty result is not an error; the requester simply stays in the pool.
// The ranking is advisory: the caller attempts a transaction per candidate
// and the transaction's existence check is authoritative.
func (s *Selector) Select(
	requester db.WaitingUser,
	pool []db.WaitingUser,
	recentPartners map[uint64]struct{},
) []db.WaitingUser {
	eligible := make([]db.WaitingUser, 0, len(pool))
	for _, cand := range pool {
		if cand.UserID == requester.UserID {
			continue
		}
		if _, tooRecent := recentPartners[cand.UserID]; tooRecent {
			continue
		}
		if !mutuallyCompatible(requester, cand) {
			continue
		}
		eligible = append(eligible, cand)
	}

	now := s.Now()
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.IsPremium != b.IsPremium {
			return a.IsPremium
		}
		sa, sb := s.score(a, now), s.score(b, now)
		if sa != sb {
			return sa > sb
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})

	return eligible
}

// score rewards time spent waiting and a good rating. Ratings arrive already
// nil'd below the display threshold, so thin samples never count.
func (s *Selector) score(c db.WaitingUser, now time.Time) float64 {
	var score float64
	if s.WaitingBonus > 0 {
		waited := now.Sub(c.JoinedAt)
		if waited > 0 {
			score += float64(waited / s.WaitingBonus)
		}
	}
	if c.Rating != nil {
		score += *c.Rating
	}
	return score
}

// mutuallyCompatible reports whether both sides accept the other's gender.
func mutuallyCompatible(a, b db.WaitingUser) bool {
	return accepts(a.GenderPreference, b.Gender) && accepts(b.GenderPreference, a.Gender)
}

func accepts(pref *string, gender string) bool {
	if pref == nil || *pref == "" || *pref == "any" {
		return true
	}
	return *pref == gender
}
