package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AggregatorOptions tune AllGroupsCompletedToday. The zero value gives
// the defaults used by the reminder check.
type AggregatorOptions struct {
	// BatchSize is how many groups to load per query. Defaults to the
	// configured batch size when zero.
	BatchSize int

	// BatchDelay is an optional pause between batches to spread load
	// when the check runs against many groups at once.
	BatchDelay time.Duration

	// AtLeastOne relaxes the check: true as soon as any eligible group
	// has today's block completed, instead of requiring all of them.
	AtLeastOne bool
}

// CompletionService answers whether a user has finished today's block
// across their groups. Groups without a running plan, or whose plan's
// window has passed, do not count against the user.
type CompletionService struct {
	db         *gorm.DB
	log        *zap.SugaredLogger
	batchSize  int
	batchDelay time.Duration

	// Now is swappable for tests.
	Now func() time.Time
}

func NewCompletionService(db *gorm.DB, log *zap.SugaredLogger, batchSize int, batchDelay time.Duration) *CompletionService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &CompletionService{
		db:         db,
		log:        log,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		Now:        time.Now,
	}
}

// AllGroupsCompletedToday reports whether userID has completed the
// current block in every group with a running plan. With no eligible
// groups the answer is true, so the caller never nags a user who has
// nothing due.
func (s *CompletionService) AllGroupsCompletedToday(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID, opts AggregatorOptions) (bool, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	delay := opts.BatchDelay
	if delay == 0 {
		delay = s.batchDelay
	}

	s.log.Debugw("completion scan", "user", userID, "groups", len(groupIDs), "batch", batchSize)

	now := s.Now()
	anyDone := false
	anyEligible := false

	for start := 0; start < len(groupIDs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		end := min(start+batchSize, len(groupIDs))

		var groups []models.Group
		if err := s.db.WithContext(ctx).Where("id IN ?", groupIDs[start:end]).Find(&groups).Error; err != nil {
			return false, err
		}

		for _, group := range groups {
			goal := group.ActiveGoal.Data()
			if goal == nil || !goal.EndDate.After(now) {
				continue
			}
			anyEligible = true

			done, err := s.blockCompleted(ctx, userID, goal, now)
			if err != nil {
				return false, err
			}
			if done {
				anyDone = true
				if opts.AtLeastOne {
					return true, nil
				}
			} else if !opts.AtLeastOne {
				return false, nil
			}
		}

		if delay > 0 && end < len(groupIDs) {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if opts.AtLeastOne {
		return anyDone || !anyEligible, nil
	}
	return true, nil
}

func (s *CompletionService) blockCompleted(ctx context.Context, userID uuid.UUID, goal *models.ActiveGoal, now time.Time) (bool, error) {
	blockIndex := schedule.BlockIndexAt(now, goal.StartDate, goal.Pace)
	if blockIndex < 1 || blockIndex > goal.Duration {
		// Outside the plan's window; nothing due today.
		return true, nil
	}

	var progress models.UserBlockProgress
	err := s.db.WithContext(ctx).
		Where("plan_id = ? AND user_id = ? AND block_index = ?", goal.PlanID, userID, blockIndex).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return progress.IsCompleted, nil
}

// CompletionCache memoizes aggregator answers for a short window so a
// burst of reminder checks does not re-query every group each time.
type CompletionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]completionEntry
}

type completionEntry struct {
	value   bool
	expires time.Time
}

func NewCompletionCache(ttl time.Duration) *CompletionCache {
	return &CompletionCache{ttl: ttl, entries: make(map[uuid.UUID]completionEntry)}
}

func (c *CompletionCache) Get(userID uuid.UUID) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok || time.Now().After(entry.expires) {
		delete(c.entries, userID)
		return false, false
	}
	return entry.value, true
}

func (c *CompletionCache) Set(userID uuid.UUID, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = completionEntry{value: value, expires: time.Now().Add(c.ttl)}
}

func (c *CompletionCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
