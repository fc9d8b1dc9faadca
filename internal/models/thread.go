package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread is the discussion thread backing a question activity. One row
// per question per plan instance; the thread ID is written back into
// the activity's messageId.
type Thread struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID    uuid.UUID      `json:"groupId" gorm:"type:uuid;index;not null"`
	PlanID     uuid.UUID      `json:"planId" gorm:"type:uuid;index;not null"`
	BlockIndex int            `json:"blockIndex" gorm:"not null"`
	UserID     uuid.UUID      `json:"userId" gorm:"type:uuid;not null"` // who applied the plan
	Question   string         `json:"question" gorm:"type:text;not null"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (t *Thread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
