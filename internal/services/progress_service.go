package services

import (
	"errors"
	"fmt"

	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/realtime"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StepResult is what a progress update reports back to the client.
type StepResult struct {
	Percent           float64 `json:"percent"`
	BlockCompletedNow bool    `json:"blockCompletedNow"`
	CurrentStep       int     `json:"currentStep"`
	TotalStep         int     `json:"totalStep"`
}

// ProgressService records step advancement through plan blocks and
// rolls it up into the per-member plan percentage. Updates are
// idempotent: replaying an old or duplicate step is a no-op, so
// clients can retry freely.
type ProgressService struct {
	db      *gorm.DB
	streaks *StreakService
	log     *zap.SugaredLogger
}

func NewProgressService(db *gorm.DB, streaks *StreakService, log *zap.SugaredLogger) *ProgressService {
	return &ProgressService{db: db, streaks: streaks, log: log}
}

// RecordStep advances userID to step within one block of a plan
// instance. blockIndex and step are 1-based, matching the client's
// reading position.
func (s *ProgressService) RecordStep(userID, groupID, planID uuid.UUID, blockIndex, step int, readingTime int64, tzOffsetHours float64) (*StepResult, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive", ErrValidation)
	}
	if blockIndex <= 0 {
		return nil, fmt.Errorf("%w: block index must be positive", ErrValidation)
	}

	uid := userID.String()
	result := &StepResult{}
	completedNow := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var instance models.PlanInstance
		if err := tx.Where("id = ? AND group_id = ?", planID, groupID).First(&instance).Error; err != nil {
			return fmt.Errorf("%w: plan %s in group %s", ErrNotFound, planID, groupID)
		}
		if blockIndex > len(instance.Blocks) {
			return fmt.Errorf("%w: block %d of plan %s", ErrNotFound, blockIndex, planID)
		}
		block := instance.Blocks[blockIndex-1]

		var progress models.UserBlockProgress
		err := tx.Where("plan_id = ? AND user_id = ? AND block_index = ?", planID, userID, blockIndex).
			First(&progress).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			progress = s.newBlockProgress(&instance, block, userID, blockIndex, step, readingTime)
			completedNow = progress.IsCompleted
			if err := tx.Create(&progress).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if step <= progress.CurrentStep {
				// Stale or duplicate update; report current state unchanged.
				result.Percent = memberPercent(&instance, uid)
				result.CurrentStep = progress.CurrentStep
				result.TotalStep = progress.TotalStep
				return nil
			}
			completedNow = s.advanceBlockProgress(&progress, step, readingTime)
			if err := tx.Save(&progress).Error; err != nil {
				return err
			}
		}

		if completedNow {
			markBlockCompleted(&instance, blockIndex, uid)
		}

		percent, totalReading, err := s.rollupMemberProgress(tx, &instance, userID)
		if err != nil {
			return err
		}

		mp := instance.MemberProgress.Data()
		if mp == nil {
			mp = make(map[string]models.MemberProgressSummary)
		}
		summary := mp[uid]
		summary.UID = uid
		summary.Percent = percent
		summary.TotalReadingTime = totalReading
		if percent >= 100 {
			summary.IsCompleted = true
		}
		mp[uid] = summary
		instance.MemberProgress = datatypes.NewJSONType(mp)

		if err := tx.Save(&instance).Error; err != nil {
			return err
		}

		result.Percent = percent
		result.BlockCompletedNow = completedNow
		result.CurrentStep = progress.CurrentStep
		result.TotalStep = progress.TotalStep
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedNow {
		// Streak updates are best-effort: the completion already
		// committed, and a lost streak write is healed by the next
		// same-day completion being a counter no-op.
		if err := s.streaks.OnBlockCompleted(userID, tzOffsetHours); err != nil {
			s.log.Errorw("streak update failed", "user", userID, "group", groupID, "err", err)
		}

		LogActivity(s.db, groupID, userID, "block_completed", &planID, map[string]interface{}{
			"blockIndex": blockIndex,
		})
		realtime.WS.Broadcast(groupID, userID, realtime.Event{
			Type:    realtime.EventBlockCompleted,
			GroupID: groupID.String(),
			UserID:  userID.String(),
			Data: map[string]interface{}{
				"planId":     planID.String(),
				"blockIndex": blockIndex,
			},
		})
	}

	return result, nil
}

// newBlockProgress derives the progress record for a block the user is
// touching for the first time: per-activity step counts, completion
// flags for everything step already covers, and reading time credited
// to the activity step lands on.
func (s *ProgressService) newBlockProgress(instance *models.PlanInstance, block models.Block, userID uuid.UUID, blockIndex, step int, readingTime int64) models.UserBlockProgress {
	activities := make([]models.ActivityProgress, 0, len(block.Activities))
	totalStep := 0
	var totalReading int64

	for _, act := range block.Activities {
		ap := models.ActivityProgress{
			Type:      act.Type,
			StepCount: act.StepCount(),
		}
		if totalStep < step && step <= totalStep+ap.StepCount {
			// Step lands on this activity
			if act.Type == models.ActivityPassage && readingTime > 0 {
				ap.ReadingTime = readingTime
				totalReading += readingTime
			}
		}
		totalStep += ap.StepCount
		if step >= totalStep {
			ap.IsCompleted = true
		}
		activities = append(activities, ap)
	}

	return models.UserBlockProgress{
		PlanID:           instance.ID,
		GroupID:          instance.GroupID,
		UserID:           userID,
		BlockIndex:       blockIndex,
		Activities:       activities,
		CurrentStep:      min(step, totalStep),
		TotalStep:        totalStep,
		IsCompleted:      step >= totalStep,
		TotalReadingTime: totalReading,
	}
}

// advanceBlockProgress moves an existing record forward to step and
// reports whether this update completed the block.
func (s *ProgressService) advanceBlockProgress(progress *models.UserBlockProgress, step int, readingTime int64) bool {
	wasCompleted := progress.IsCompleted

	stepSum := 0
	var totalReading int64
	activities := []models.ActivityProgress(progress.Activities)
	for i := range activities {
		ap := &activities[i]
		if stepSum < step && step <= stepSum+ap.StepCount {
			if ap.Type == models.ActivityPassage && readingTime > 0 && !ap.IsCompleted {
				ap.ReadingTime += readingTime
			}
		}
		stepSum += ap.StepCount
		if step >= stepSum {
			ap.IsCompleted = true
		}
		totalReading += ap.ReadingTime
	}

	progress.Activities = activities
	progress.CurrentStep = min(step, progress.TotalStep)
	progress.IsCompleted = step >= progress.TotalStep
	progress.TotalReadingTime = totalReading

	return progress.IsCompleted && !wasCompleted
}

// rollupMemberProgress recomputes the user's plan-wide percentage:
// every block contributes equally (100/duration) regardless of its
// step count, scaled by how far through it the user is.
func (s *ProgressService) rollupMemberProgress(tx *gorm.DB, instance *models.PlanInstance, userID uuid.UUID) (float64, int64, error) {
	var rows []models.UserBlockProgress
	if err := tx.Where("plan_id = ? AND user_id = ?", instance.ID, userID).Find(&rows).Error; err != nil {
		return 0, 0, err
	}

	var percent float64
	var totalReading int64
	for _, row := range rows {
		if row.TotalStep > 0 {
			percent += float64(row.CurrentStep) / float64(row.TotalStep) * (100 / float64(instance.Duration))
		}
		totalReading += row.TotalReadingTime
	}
	return percent, totalReading, nil
}

func markBlockCompleted(instance *models.PlanInstance, blockIndex int, uid string) {
	block := &instance.Blocks[blockIndex-1]
	for _, member := range block.CompletedMembers {
		if member == uid {
			return
		}
	}
	block.CompletedMembers = append(block.CompletedMembers, uid)
}

func memberPercent(instance *models.PlanInstance, uid string) float64 {
	mp := instance.MemberProgress.Data()
	if mp == nil {
		return 0
	}
	return mp[uid].Percent
}
