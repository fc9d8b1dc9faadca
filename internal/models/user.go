package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	Password    string    `json:"-"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl"`
	FCMToken    string    `json:"-" gorm:"column:fcm_token"`

	// Streak state, mutated only by the streak engine. Dates are stored
	// as absolute instants; the engine interprets them against the
	// caller's timezone offset.
	CurrentStreak        int        `json:"currentStreak" gorm:"default:0"`
	LongestStreak        int        `json:"longestStreak" gorm:"default:0"`
	TotalStreak          int        `json:"totalStreak" gorm:"default:0"`
	StreakStartDate      *time.Time `json:"streakStartDate"`
	LastStreakDate       *time.Time `json:"lastStreakDate"`
	NextStreakExpireDate *time.Time `json:"nextStreakExpireDate"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Auth DTOs
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	Name        *string `json:"name"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
