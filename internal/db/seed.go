package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedDemoData resets the database and populates it with demo users for
// local development.
//
// Behavior:
//  1. Clears users, the waiting pool, match history, active chats and ratings.
//  2. Creates 20 users (10 male, 10 female), every 5th premium.
//  3. Puts half of them into the waiting pool with staggered join times.
//  4. Sprinkles cross-gender ratings so some users clear the display threshold.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"ratings", "match_histories", "active_chats", "waiting_users", "bans", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE active_chats AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'active_chats'")
	}

	log.Println("Cleared existing data")

	// --- Seed users (10 male, 10 female) ---
	for i := 1; i <= 20; i++ {
		gender := "male"
		if i > 10 {
			gender = "female"
		}

		user := User{
			UserID:       uint64(i),
			Gender:       gender,
			IsPremium:    i%5 == 0,
			CurrentState: StateIdle,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed waiting pool (every other user, staggered join times) ---
	for i := 1; i <= 20; i += 2 {
		gender := "male"
		if i > 10 {
			gender = "female"
		}

		entry := WaitingUser{
			UserID:    uint64(i),
			Gender:    gender,
			IsPremium: i%5 == 0,
			JoinedAt:  time.Now().UTC().Add(-time.Duration(r.Intn(300)) * time.Second),
		}
		if err := db.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to seed pool entry: %w", err)
		}
		if err := db.Model(&User{}).
			Where("user_id = ?", entry.UserID).
			Update("current_state", StateWaiting).Error; err != nil {
			return fmt.Errorf("failed to flag waiting user: %w", err)
		}
	}

	// --- Seed ratings (cross-gender, 1..5) ---
	for rated := 1; rated <= 20; rated++ {
		raters := 3 + r.Intn(6) // 3..8 ratings each
		for j := 0; j < raters; j++ {
			rater := r.Intn(20) + 1
			if rater == rated {
				continue
			}

			rating := Rating{
				RatedID: uint64(rated),
				RaterID: uint64(rater),
				Rating:  2 + r.Intn(4), // bias toward decent ratings
			}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "rated_id"}, {Name: "rater_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"rating"}),
			}).Create(&rating).Error; err != nil {
				return fmt.Errorf("failed to seed rating: %w", err)
			}
		}
	}

	return nil
}
