package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityProgress mirrors one activity of the block for one user:
// whether they've stepped past it and, for passages, how long they
// spent reading.
type ActivityProgress struct {
	Type        ActivityType `json:"type"`
	IsCompleted bool         `json:"isCompleted"`
	StepCount   int          `json:"stepCount"`
	ReadingTime int64        `json:"readingTime,omitempty"` // seconds
}

// UserBlockProgress tracks one user's steps through one block of a
// plan instance. Created lazily on the first step update for the
// block and never deleted; CurrentStep only ever grows.
type UserBlockProgress struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PlanID     uuid.UUID `json:"planId" gorm:"type:uuid;index;not null;uniqueIndex:idx_plan_user_block"`
	GroupID    uuid.UUID `json:"groupId" gorm:"type:uuid;index;not null"`
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;index;not null;uniqueIndex:idx_plan_user_block"`
	BlockIndex int       `json:"blockIndex" gorm:"not null;uniqueIndex:idx_plan_user_block"` // 1-based

	Activities       datatypes.JSONSlice[ActivityProgress] `json:"activities"`
	CurrentStep      int                                   `json:"currentStep" gorm:"not null"`
	TotalStep        int                                   `json:"totalStep" gorm:"not null"`
	IsCompleted      bool                                  `json:"isCompleted" gorm:"default:false"`
	TotalReadingTime int64                                 `json:"totalReadingTime" gorm:"default:0"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *UserBlockProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Progress DTOs
type RecordProgressRequest struct {
	BlockIndex  int     `json:"blockIndex" validate:"required"`
	Step        int     `json:"step" validate:"required"`
	TimeZone    float64 `json:"timeZone"`
	ReadingTime int64   `json:"readingTime"`
}
