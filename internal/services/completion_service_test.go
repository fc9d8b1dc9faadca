package services

import (
	"context"
	"testing"
	"time"

	"github.com/arnold/studyplans-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newCompletionService(db *gorm.DB) *CompletionService {
	svc := NewCompletionService(db, testLogger(), 10, 0)
	svc.Now = func() time.Time { return testClock }
	return svc
}

// groupWithRunningPlan sets up a group whose active goal started at
// startOffset relative to the test clock's midnight.
func groupWithRunningPlan(t *testing.T, db *gorm.DB, ownerID uuid.UUID, duration int, startOffset time.Duration) (models.Group, uuid.UUID) {
	t.Helper()
	group := createGroup(t, db, ownerID, 0)
	planID := uuid.New()
	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC).Add(startOffset)
	goal := &models.ActiveGoal{
		PlanID:    planID,
		StartDate: start,
		EndDate:   start.Add(time.Duration(duration) * 24 * time.Hour),
		Pace:      "day",
		Duration:  duration,
		Name:      "Gospel of John",
	}
	group.ActiveGoal = datatypes.NewJSONType(goal)
	require.NoError(t, db.Save(&group).Error)
	return group, planID
}

func markBlockDone(t *testing.T, db *gorm.DB, planID, groupID, userID uuid.UUID, blockIndex int) {
	t.Helper()
	row := models.UserBlockProgress{
		PlanID:      planID,
		GroupID:     groupID,
		UserID:      userID,
		BlockIndex:  blockIndex,
		CurrentStep: 1,
		TotalStep:   1,
		IsCompleted: true,
	}
	require.NoError(t, db.Create(&row).Error)
}

func TestAllGroupsCompletedVacuouslyTrue(t *testing.T) {
	db := newTestDB(t)
	svc := newCompletionService(db)
	user := createUser(t, db)

	// No groups at all.
	done, err := svc.AllGroupsCompletedToday(context.Background(), user.ID, nil, AggregatorOptions{})
	require.NoError(t, err)
	assert.True(t, done)

	// A group with no running plan does not count against the user.
	idle := createGroup(t, db, user.ID, 0)
	done, err = svc.AllGroupsCompletedToday(context.Background(), user.ID, []uuid.UUID{idle.ID}, AggregatorOptions{})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAllGroupsCompletedToday(t *testing.T) {
	db := newTestDB(t)
	svc := newCompletionService(db)
	user := createUser(t, db)

	// Today (Mar 10, 14:00) is block 1 of both plans.
	groupA, planA := groupWithRunningPlan(t, db, user.ID, 7, 0)
	groupB, planB := groupWithRunningPlan(t, db, user.ID, 7, 0)
	ids := []uuid.UUID{groupA.ID, groupB.ID}

	done, err := svc.AllGroupsCompletedToday(context.Background(), user.ID, ids, AggregatorOptions{})
	require.NoError(t, err)
	assert.False(t, done)

	markBlockDone(t, db, planA, groupA.ID, user.ID, 1)
	done, err = svc.AllGroupsCompletedToday(context.Background(), user.ID, ids, AggregatorOptions{})
	require.NoError(t, err)
	assert.False(t, done, "one group still has today's block open")

	markBlockDone(t, db, planB, groupB.ID, user.ID, 1)
	done, err = svc.AllGroupsCompletedToday(context.Background(), user.ID, ids, AggregatorOptions{})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAllGroupsCompletedAtLeastOne(t *testing.T) {
	db := newTestDB(t)
	svc := newCompletionService(db)
	user := createUser(t, db)

	groupA, planA := groupWithRunningPlan(t, db, user.ID, 7, 0)
	groupB, _ := groupWithRunningPlan(t, db, user.ID, 7, 0)
	ids := []uuid.UUID{groupA.ID, groupB.ID}
	opts := AggregatorOptions{AtLeastOne: true}

	done, err := svc.AllGroupsCompletedToday(context.Background(), user.ID, ids, opts)
	require.NoError(t, err)
	assert.False(t, done)

	markBlockDone(t, db, planA, groupA.ID, user.ID, 1)
	done, err = svc.AllGroupsCompletedToday(context.Background(), user.ID, ids, opts)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAllGroupsCompletedSkipsFinishedPlans(t *testing.T) {
	db := newTestDB(t)
	svc := newCompletionService(db)
	user := createUser(t, db)

	// The plan ended five days before the test clock.
	expired, _ := groupWithRunningPlan(t, db, user.ID, 2, -7*24*time.Hour)

	done, err := svc.AllGroupsCompletedToday(context.Background(), user.ID, []uuid.UUID{expired.ID}, AggregatorOptions{})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAllGroupsCompletedCurrentBlockOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newCompletionService(db)
	user := createUser(t, db)

	// Plan started two days ago, so today is block 3. Completing only
	// block 1 does not satisfy the check.
	group, planID := groupWithRunningPlan(t, db, user.ID, 7, -2*24*time.Hour)
	markBlockDone(t, db, planID, group.ID, user.ID, 1)

	done, err := svc.AllGroupsCompletedToday(context.Background(), user.ID, []uuid.UUID{group.ID}, AggregatorOptions{})
	require.NoError(t, err)
	assert.False(t, done)

	markBlockDone(t, db, planID, group.ID, user.ID, 3)
	done, err = svc.AllGroupsCompletedToday(context.Background(), user.ID, []uuid.UUID{group.ID}, AggregatorOptions{})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAllGroupsCompletedBatches(t *testing.T) {
	db := newTestDB(t)
	svc := newCompletionService(db)
	user := createUser(t, db)

	// More groups than one batch holds.
	ids := make([]uuid.UUID, 0, 25)
	for i := 0; i < 25; i++ {
		group, planID := groupWithRunningPlan(t, db, user.ID, 7, 0)
		markBlockDone(t, db, planID, group.ID, user.ID, 1)
		ids = append(ids, group.ID)
	}

	done, err := svc.AllGroupsCompletedToday(context.Background(), user.ID, ids, AggregatorOptions{BatchSize: 10})
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAllGroupsCompletedHonorsContext(t *testing.T) {
	db := newTestDB(t)
	svc := newCompletionService(db)
	user := createUser(t, db)
	group, _ := groupWithRunningPlan(t, db, user.ID, 7, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.AllGroupsCompletedToday(ctx, user.ID, []uuid.UUID{group.ID}, AggregatorOptions{})
	assert.Error(t, err)
}

func TestCompletionCache(t *testing.T) {
	cache := NewCompletionCache(50 * time.Millisecond)
	userID := uuid.New()

	_, ok := cache.Get(userID)
	assert.False(t, ok)

	cache.Set(userID, true)
	value, ok := cache.Get(userID)
	assert.True(t, ok)
	assert.True(t, value)

	cache.Invalidate(userID)
	_, ok = cache.Get(userID)
	assert.False(t, ok)

	cache.Set(userID, false)
	time.Sleep(60 * time.Millisecond)
	_, ok = cache.Get(userID)
	assert.False(t, ok, "entries expire after the TTL")
}
