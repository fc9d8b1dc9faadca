package services

import (
	"fmt"
	"time"

	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StreakService maintains the per-user daily study streak. A user's
// streak advances at most once per local day, no matter how many
// blocks they finish, and survives until the end of the local day
// after the last counted one.
type StreakService struct {
	db  *gorm.DB
	log *zap.SugaredLogger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewStreakService(db *gorm.DB, log *zap.SugaredLogger) *StreakService {
	return &StreakService{db: db, log: log, Now: time.Now}
}

// OnBlockCompleted records that userID finished a block today in their
// local timezone and updates the streak counters accordingly.
func (s *StreakService) OnBlockCompleted(userID uuid.UUID, tzOffsetHours float64) error {
	now := s.Now()
	today := schedule.LocalMidnight(now, tzOffsetHours)
	// The streak stays alive until the end of the local day after the
	// counted one, so missing a single day is forgiven until midnight.
	expire := today.Add(48 * time.Hour)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}

		switch {
		case user.LastStreakDate == nil:
			// First ever completion
			user.CurrentStreak = 1
			user.TotalStreak = 1
			if user.LongestStreak < 1 {
				user.LongestStreak = 1
			}
			user.StreakStartDate = &today

		case !user.LastStreakDate.Before(today):
			// Already counted today
			return nil

		case user.NextStreakExpireDate != nil && user.NextStreakExpireDate.After(now):
			user.CurrentStreak++
			user.TotalStreak++
			if user.CurrentStreak > user.LongestStreak {
				user.LongestStreak = user.CurrentStreak
			}

		default:
			// Streak lapsed; start over but keep lifetime totals
			user.CurrentStreak = 1
			user.TotalStreak++
			user.StreakStartDate = &today
		}

		user.LastStreakDate = &today
		user.NextStreakExpireDate = &expire

		return tx.Model(&user).Select(
			"current_streak", "longest_streak", "total_streak",
			"streak_start_date", "last_streak_date", "next_streak_expire_date",
		).Updates(&user).Error
	})
}
