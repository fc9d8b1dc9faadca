package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActiveGoal is the denormalized pointer to the group's single active
// plan instance. At most one instance per group has status normal, and
// this pointer (when present) references exactly that instance.
type ActiveGoal struct {
	PlanID    uuid.UUID `json:"planId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Pace      string    `json:"pace"`
	Duration  int       `json:"duration"`
	Name      string    `json:"name"`
}

type Group struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID uuid.UUID `json:"ownerId" gorm:"type:uuid;index;not null"`
	Name    string    `json:"name" gorm:"not null"`
	Image   string    `json:"image"`

	// TimeZone is the group's signed UTC offset in hours (UTC-5 is -5).
	// Local time for schedule math is the instant plus this offset.
	TimeZone float64 `json:"timeZone" gorm:"default:0"`

	InviteCode string `json:"inviteCode" gorm:"uniqueIndex;not null"`

	ActiveGoal    datatypes.JSONType[*ActiveGoal]   `json:"activeGoal"`
	PreviousPlans datatypes.JSONSlice[uuid.UUID]    `json:"previousPlans"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Members []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.InviteCode == "" {
		g.InviteCode = generateInviteCode()
	}
	return nil
}

func generateInviteCode() string {
	b := make([]byte, 6) // 12 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Group DTOs
type CreateGroupRequest struct {
	Name     string  `json:"name" validate:"required"`
	Image    string  `json:"image"`
	TimeZone float64 `json:"timeZone"`
}

type UpdateGroupRequest struct {
	Name     *string  `json:"name"`
	Image    *string  `json:"image"`
	TimeZone *float64 `json:"timeZone"`
}
