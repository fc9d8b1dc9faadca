package models

import (
	"time"

	"github.com/arnold/studyplans-api/internal/schedule"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan instance statuses. ended is terminal; a future instance that is
// superseded before it ever activates is deleted outright.
const (
	PlanStatusNormal = "normal"
	PlanStatusFuture = "future"
	PlanStatusEnded  = "ended"
)

// MemberProgressSummary is the per-user rollup embedded in the
// instance's memberProgress map.
type MemberProgressSummary struct {
	UID              string  `json:"uid"`
	Percent          float64 `json:"percent"`
	IsCompleted      bool    `json:"isCompleted"`
	TotalReadingTime int64   `json:"totalReadingTime"`
}

// PlanInstance is a group-bound copy of a template. StartDate is
// normalized to the group's local midnight when the plan is applied.
type PlanInstance struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID    uuid.UUID `json:"groupId" gorm:"type:uuid;index;not null"`
	OriginalID uuid.UUID `json:"originalId" gorm:"type:uuid"` // source template
	Name       string    `json:"name" gorm:"not null"`
	Pace       string    `json:"pace" gorm:"not null"`
	Duration   int       `json:"duration" gorm:"not null"`
	Status     string    `json:"status" gorm:"not null;index"`
	StartDate  time.Time `json:"startDate" gorm:"not null"`

	Blocks         datatypes.JSONSlice[Block]                          `json:"blocks"`
	MemberProgress datatypes.JSONType[map[string]MemberProgressSummary] `json:"memberProgress"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (p *PlanInstance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Window is the instance's effective [start, end] interval.
func (p *PlanInstance) Window() schedule.Window {
	return schedule.WindowFrom(p.StartDate, p.Duration, p.Pace)
}
