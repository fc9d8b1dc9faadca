package services

import (
	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/realtime"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ThreadCreator is the messaging collaborator that backs question
// activities with discussion threads. The plan engine only depends on
// this interface so the chat backend can be swapped (or faked in
// tests).
type ThreadCreator interface {
	CreateThread(groupID, planID, userID uuid.UUID, blockIndex int, question string) (string, error)
}

// ThreadService persists threads and announces them to connected group
// members.
type ThreadService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewThreadService(db *gorm.DB, log *zap.SugaredLogger) *ThreadService {
	return &ThreadService{db: db, log: log}
}

func (s *ThreadService) CreateThread(groupID, planID, userID uuid.UUID, blockIndex int, question string) (string, error) {
	thread := models.Thread{
		GroupID:    groupID,
		PlanID:     planID,
		BlockIndex: blockIndex,
		UserID:     userID,
		Question:   question,
	}
	if err := s.db.Create(&thread).Error; err != nil {
		return "", err
	}

	realtime.WS.Broadcast(groupID, userID, realtime.Event{
		Type:    realtime.EventThreadCreated,
		GroupID: groupID.String(),
		UserID:  userID.String(),
		Data: map[string]interface{}{
			"threadId":   thread.ID.String(),
			"planId":     planID.String(),
			"blockIndex": blockIndex,
			"question":   question,
		},
	})

	s.log.Infow("thread created", "thread", thread.ID, "group", groupID, "plan", planID)
	return thread.ID.String(), nil
}
