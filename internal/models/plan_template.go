package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Template lifecycle states.
const (
	TemplateDraft     = "draft"
	TemplateCompleted = "completed"
	TemplateBought    = "bought"
)

// PlanTemplate is an authored study plan. Applying it to a group copies
// the blocks into a PlanInstance; the template itself stays untouched.
type PlanTemplate struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AuthorID    uuid.UUID `json:"authorId" gorm:"type:uuid;index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Pace        string    `json:"pace" gorm:"not null;default:'day'"` // day, week
	Duration    int       `json:"duration" gorm:"not null"`           // periods, one block each
	State       string    `json:"state" gorm:"not null;default:'draft'"`
	Version     int       `json:"version" gorm:"default:1"`

	Blocks datatypes.JSONSlice[Block] `json:"blocks"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (t *PlanTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Template DTOs
type CreateTemplateRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Pace        string  `json:"pace" validate:"required"`
	Duration    int     `json:"duration" validate:"required"`
	State       string  `json:"state"`
	Blocks      []Block `json:"blocks"`
}
