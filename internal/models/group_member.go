package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupMember struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID      `json:"groupId" gorm:"type:uuid;index;not null;uniqueIndex:idx_group_user"`
	UserID    uuid.UUID      `json:"userId" gorm:"type:uuid;index;not null;uniqueIndex:idx_group_user"`
	Role      string         `json:"role" gorm:"not null;default:'member'"` // owner, member
	JoinedAt  time.Time      `json:"joinedAt"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations (for preloading)
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (gm *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if gm.ID == uuid.Nil {
		gm.ID = uuid.New()
	}
	if gm.JoinedAt.IsZero() {
		gm.JoinedAt = time.Now()
	}
	return nil
}
