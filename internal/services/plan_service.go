package services

import (
	"fmt"
	"time"

	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/realtime"
	"github.com/arnold/studyplans-api/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PlanService owns the plan lifecycle: applying a template to a group,
// resolving overlapping instances, and keeping the group's active-goal
// pointer in step with instance statuses. Every read-modify-write runs
// in one transaction; the only external call (thread creation) happens
// before the write so a failed apply commits nothing.
type PlanService struct {
	db      *gorm.DB
	threads ThreadCreator
	log     *zap.SugaredLogger

	// Now is swappable for tests.
	Now func() time.Time
}

func NewPlanService(db *gorm.DB, threads ThreadCreator, log *zap.SugaredLogger) *PlanService {
	return &PlanService{db: db, threads: threads, log: log, Now: time.Now}
}

// OverlapCheck is the answer to "does this window collide with
// existing plans, and which plan should end up active".
type OverlapCheck struct {
	Overlapping    []models.PlanInstance `json:"overlapping"`
	NextToActivate *uuid.UUID            `json:"nextToActivate,omitempty"`
}

// ApplyTemplateToGroup instantiates a template for a group starting at
// requestedStart (normalized to the group's local midnight).
func (s *PlanService) ApplyTemplateToGroup(userID, groupID uuid.UUID, tpl *models.PlanTemplate, requestedStart time.Time) (*models.PlanInstance, error) {
	var group models.Group
	if err := s.db.First(&group, groupID).Error; err != nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}

	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}

	window := schedule.EffectiveWindow(requestedStart, tpl.Duration, tpl.Pace, group.TimeZone)
	todayStart := schedule.LocalMidnight(s.Now(), group.TimeZone)

	status := models.PlanStatusNormal
	if todayStart.Before(window.Start) {
		status = models.PlanStatusFuture
	}

	instance := &models.PlanInstance{
		ID:             uuid.New(),
		GroupID:        groupID,
		OriginalID:     tpl.ID,
		Name:           tpl.Name,
		Pace:           tpl.Pace,
		Duration:       tpl.Duration,
		Status:         status,
		StartDate:      window.Start,
		Blocks:         datatypes.JSONSlice[models.Block](copyBlocks(tpl.Blocks)),
		MemberProgress: newMemberProgress(userID),
	}

	// Read-only overlap pre-check so a doomed apply never reaches the
	// thread collaborator. The in-transaction check below stays the
	// authoritative one.
	preLive, err := liveInstances(s.db, groupID)
	if err != nil {
		return nil, err
	}
	if err := rejectLosingCandidate(instance, preLive); err != nil {
		return nil, err
	}

	// Create threads for the first block's question activities before
	// touching the store. Activities that already carry a messageId are
	// skipped, so a retried apply never duplicates threads.
	if err := s.ensureFirstBlockThreads(instance, userID); err != nil {
		return nil, fmt.Errorf("create question threads for group %s: %w", groupID, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, groupID).Error; err != nil {
			return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
		}

		live, err := liveInstances(tx, groupID)
		if err != nil {
			return err
		}

		if err := rejectLosingCandidate(instance, live); err != nil {
			return err
		}
		res := schedule.FindOverlaps(spanOf(instance), spansOf(live))

		if err := tx.Create(instance).Error; err != nil {
			return err
		}

		// Overlapping instances lose to the new plan: the active one is
		// ended (terminal, never deleted); a future one that never
		// activated is removed entirely.
		for i := range live {
			if !contains(res.Overlapping, live[i].ID.String()) {
				continue
			}
			if err := s.retireInstance(tx, &group, &live[i]); err != nil {
				return err
			}
		}

		group.PreviousPlans = append(group.PreviousPlans, tpl.ID)

		if instance.Status == models.PlanStatusNormal {
			if err := s.promote(tx, &group, instance); err != nil {
				return err
			}
		}

		return tx.Save(&group).Error
	})
	if err != nil {
		return nil, err
	}

	planID := instance.ID
	LogActivity(s.db, groupID, userID, "plan_applied", &planID, map[string]interface{}{
		"planName": instance.Name,
		"pace":     instance.Pace,
	})
	realtime.WS.Broadcast(groupID, userID, realtime.Event{
		Type:    realtime.EventPlanApplied,
		GroupID: groupID.String(),
		UserID:  userID.String(),
		Data:    instance,
	})
	if instance.Status == models.PlanStatusNormal {
		s.announcePlanStarted(groupID, userID, instance)
	}

	s.log.Infow("plan applied", "group", groupID, "plan", instance.ID, "status", instance.Status)
	return instance, nil
}

// CheckOverlaps answers the standalone overlap query without writing
// anything.
func (s *PlanService) CheckOverlaps(groupID uuid.UUID, requestedStart time.Time, duration int, pace string) (*OverlapCheck, error) {
	var group models.Group
	if err := s.db.First(&group, groupID).Error; err != nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, groupID)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	live, err := liveInstances(s.db, groupID)
	if err != nil {
		return nil, err
	}

	window := schedule.EffectiveWindow(requestedStart, duration, pace, group.TimeZone)
	res := schedule.FindOverlaps(schedule.Span{ID: "", Window: window}, spansOf(live))

	check := &OverlapCheck{Overlapping: []models.PlanInstance{}}
	for i := range live {
		if contains(res.Overlapping, live[i].ID.String()) {
			check.Overlapping = append(check.Overlapping, live[i])
		}
	}
	if res.NextToActivate != nil && res.NextToActivate.ID != "" {
		id, err := uuid.Parse(res.NextToActivate.ID)
		if err == nil {
			check.NextToActivate = &id
		}
	}
	return check, nil
}

// Reevaluate re-derives which instance should be active right now and
// promotes it. There is no background scheduler; callers invoke this
// opportunistically (after a future plan's start date has passed, after
// ending a plan, on app focus).
func (s *PlanService) Reevaluate(groupID uuid.UUID) error {
	var promoted *models.PlanInstance
	var actorID uuid.UUID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
		}
		actorID = group.OwnerID

		live, err := liveInstances(tx, groupID)
		if err != nil {
			return err
		}

		now := s.Now()
		var chosen *models.PlanInstance
		for i := range live {
			if !live[i].Window().Contains(now) {
				continue
			}
			if chosen == nil || live[i].StartDate.Before(chosen.StartDate) {
				chosen = &live[i]
			}
		}
		if chosen == nil {
			return nil
		}

		ag := group.ActiveGoal.Data()
		if ag != nil && ag.PlanID == chosen.ID && chosen.Status == models.PlanStatusNormal {
			return nil
		}

		if err := s.promote(tx, &group, chosen); err != nil {
			return err
		}
		promoted = chosen
		return tx.Save(&group).Error
	})
	if err != nil {
		return err
	}

	if promoted != nil {
		s.announcePlanStarted(groupID, actorID, promoted)
		s.log.Infow("active plan reevaluated", "group", groupID, "plan", promoted.ID)
	}
	return nil
}

// EndPlan marks an instance ended and clears the pointer if it was the
// active one, then lets reevaluation pick a successor.
func (s *PlanService) EndPlan(groupID, planID, userID uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			return fmt.Errorf("%w: group %s", ErrNotFound, groupID)
		}

		var instance models.PlanInstance
		if err := tx.Where("id = ? AND group_id = ?", planID, groupID).First(&instance).Error; err != nil {
			return fmt.Errorf("%w: plan %s in group %s", ErrNotFound, planID, groupID)
		}

		if instance.Status == models.PlanStatusEnded {
			return nil
		}

		instance.Status = models.PlanStatusEnded
		if err := tx.Save(&instance).Error; err != nil {
			return err
		}

		if ag := group.ActiveGoal.Data(); ag != nil && ag.PlanID == planID {
			group.ActiveGoal = newActiveGoal(nil)
			return tx.Save(&group).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	LogActivity(s.db, groupID, userID, "plan_ended", &planID, nil)
	realtime.WS.Broadcast(groupID, userID, realtime.Event{
		Type:    realtime.EventPlanEnded,
		GroupID: groupID.String(),
		UserID:  userID.String(),
		Data:    map[string]interface{}{"planId": planID.String()},
	})

	// Another live instance may cover today now that this one is gone.
	return s.Reevaluate(groupID)
}

// promote makes instance the group's active goal: ends the previously
// pointed-to instance, flips the new one to normal, and overwrites the
// pointer. No-op when the pointer already references instance. Caller
// saves the group.
func (s *PlanService) promote(tx *gorm.DB, group *models.Group, instance *models.PlanInstance) error {
	ag := group.ActiveGoal.Data()
	if ag != nil && ag.PlanID == instance.ID {
		return nil
	}

	if ag != nil {
		var prior models.PlanInstance
		err := tx.Where("id = ? AND group_id = ?", ag.PlanID, group.ID).First(&prior).Error
		if err == nil && prior.Status != models.PlanStatusEnded && prior.ID != instance.ID {
			prior.Status = models.PlanStatusEnded
			if err := tx.Save(&prior).Error; err != nil {
				return err
			}
		}
	}

	if instance.Status != models.PlanStatusNormal {
		instance.Status = models.PlanStatusNormal
		if err := tx.Save(instance).Error; err != nil {
			return err
		}
	}

	window := instance.Window()
	group.ActiveGoal = newActiveGoal(&models.ActiveGoal{
		PlanID:    instance.ID,
		StartDate: instance.StartDate,
		EndDate:   window.RawEnd,
		Pace:      instance.Pace,
		Duration:  instance.Duration,
		Name:      instance.Name,
	})
	return nil
}

// retireInstance removes an overlapping instance that lost resolution:
// the currently active plan is ended, anything else is deleted before
// it ever activates.
func (s *PlanService) retireInstance(tx *gorm.DB, group *models.Group, instance *models.PlanInstance) error {
	ag := group.ActiveGoal.Data()
	if ag != nil && ag.PlanID == instance.ID {
		instance.Status = models.PlanStatusEnded
		group.ActiveGoal = newActiveGoal(nil)
		return tx.Save(instance).Error
	}
	return tx.Delete(instance).Error
}

func (s *PlanService) ensureFirstBlockThreads(instance *models.PlanInstance, userID uuid.UUID) error {
	if len(instance.Blocks) == 0 {
		return nil
	}
	block := &instance.Blocks[0]
	for i := range block.Activities {
		act := &block.Activities[i]
		if act.Type != models.ActivityQuestion || act.Question == nil {
			continue
		}
		if act.Question.MessageID != "" {
			continue
		}
		messageID, err := s.threads.CreateThread(instance.GroupID, instance.ID, userID, 1, act.Question.Question)
		if err != nil {
			return err
		}
		act.Question.MessageID = messageID
	}
	return nil
}

// announcePlanStarted notifies members when a plan becomes the active
// goal on its start day.
func (s *PlanService) announcePlanStarted(groupID, actorID uuid.UUID, instance *models.PlanInstance) {
	var group models.Group
	if err := s.db.First(&group, groupID).Error; err != nil {
		return
	}
	today := schedule.LocalMidnight(s.Now(), group.TimeZone)
	if !instance.StartDate.Equal(today) {
		return
	}

	firstBlock := ""
	if len(instance.Blocks) > 0 {
		firstBlock = instance.Blocks[0].Name
	}
	NotifyGroupMembers(s.db, groupID, uuid.Nil, "plan_started",
		"A new study has started!",
		fmt.Sprintf("%q kicks off today with %q", instance.Name, firstBlock),
		map[string]interface{}{"groupId": groupID.String(), "planId": instance.ID.String()},
	)
	realtime.WS.Broadcast(groupID, actorID, realtime.Event{
		Type:    realtime.EventPlanStarted,
		GroupID: groupID.String(),
		UserID:  actorID.String(),
		Data:    map[string]interface{}{"planId": instance.ID.String(), "name": instance.Name},
	})
}

func validateTemplate(tpl *models.PlanTemplate) error {
	if tpl.Duration <= 0 {
		return fmt.Errorf("%w: plan duration must be positive", ErrValidation)
	}
	if tpl.Pace != schedule.PaceDay && tpl.Pace != schedule.PaceWeek {
		return fmt.Errorf("%w: unknown pace %q", ErrValidation, tpl.Pace)
	}
	if tpl.State == models.TemplateDraft {
		return fmt.Errorf("%w: draft plans cannot be applied", ErrValidation)
	}
	if len(tpl.Blocks) == 0 {
		return fmt.Errorf("%w: study plan is empty", ErrValidation)
	}
	for i, block := range tpl.Blocks {
		if len(block.Activities) == 0 {
			return fmt.Errorf("%w: plan for %s %d is empty", ErrValidation, tpl.Pace, i+1)
		}
	}
	return nil
}

// rejectLosingCandidate fails with ErrOverlapRejected when an
// earlier-starting live instance would keep the slot instead of the
// candidate.
func rejectLosingCandidate(candidate *models.PlanInstance, live []models.PlanInstance) error {
	res := schedule.FindOverlaps(spanOf(candidate), spansOf(live))
	if res.NextToActivate != nil && res.NextToActivate.ID != candidate.ID.String() {
		return fmt.Errorf("%w: plan %s starts earlier and overlaps the requested window",
			ErrOverlapRejected, res.NextToActivate.ID)
	}
	return nil
}

// copyBlocks detaches an instance's blocks from the template they came
// from, so writing thread IDs and completed members never leaks back
// into the template's in-memory activities.
func copyBlocks(src []models.Block) []models.Block {
	out := make([]models.Block, len(src))
	for i, block := range src {
		block.CompletedMembers = append([]string(nil), block.CompletedMembers...)
		activities := make([]models.Activity, len(block.Activities))
		for j, act := range block.Activities {
			if act.Question != nil {
				q := *act.Question
				act.Question = &q
			}
			if act.Passage != nil {
				p := *act.Passage
				p.Verses = append([]models.VerseRange(nil), p.Verses...)
				act.Passage = &p
			}
			if act.Video != nil {
				v := *act.Video
				act.Video = &v
			}
			if act.Action != nil {
				a := *act.Action
				act.Action = &a
			}
			activities[j] = act
		}
		block.Activities = activities
		out[i] = block
	}
	return out
}

func liveInstances(tx *gorm.DB, groupID uuid.UUID) ([]models.PlanInstance, error) {
	var live []models.PlanInstance
	err := tx.Where("group_id = ? AND status <> ?", groupID, models.PlanStatusEnded).
		Order("created_at ASC").
		Find(&live).Error
	return live, err
}

func spanOf(p *models.PlanInstance) schedule.Span {
	return schedule.Span{ID: p.ID.String(), Window: p.Window()}
}

func spansOf(instances []models.PlanInstance) []schedule.Span {
	spans := make([]schedule.Span, len(instances))
	for i := range instances {
		spans[i] = spanOf(&instances[i])
	}
	return spans
}

func contains(spans []schedule.Span, id string) bool {
	for _, s := range spans {
		if s.ID == id {
			return true
		}
	}
	return false
}

func newActiveGoal(ag *models.ActiveGoal) datatypes.JSONType[*models.ActiveGoal] {
	return datatypes.NewJSONType(ag)
}

func newMemberProgress(userID uuid.UUID) datatypes.JSONType[map[string]models.MemberProgressSummary] {
	uid := userID.String()
	return datatypes.NewJSONType(map[string]models.MemberProgressSummary{
		uid: {UID: uid},
	})
}
