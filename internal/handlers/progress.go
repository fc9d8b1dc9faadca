package handlers

import (
	"github.com/arnold/studyplans-api/internal/database"
	"github.com/arnold/studyplans-api/internal/middleware"
	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RecordStudyProgress advances the caller's position within a plan
// block and returns the recomputed plan percentage.
func RecordStudyProgress(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}
	planID, err := uuid.Parse(c.Params("planId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid plan ID",
		})
	}

	if !isGroupMember(groupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not a member of this group",
		})
	}

	var req models.RecordProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := Progress.RecordStep(userID, groupID, planID, req.BlockIndex, req.Step, req.ReadingTime, req.TimeZone)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Progress recorded",
		"data":    result,
	})
}

// GetPlanProgress returns the caller's per-block records plus the
// whole group's progress summary for a plan.
func GetPlanProgress(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}
	planID, err := uuid.Parse(c.Params("planId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid plan ID",
		})
	}

	if !isGroupMember(groupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not a member of this group",
		})
	}

	var plan models.PlanInstance
	if err := database.DB.Where("id = ? AND group_id = ?", planID, groupID).
		First(&plan).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}

	var blocks []models.UserBlockProgress
	if err := database.DB.Where("plan_id = ? AND user_id = ?", planID, userID).
		Order("block_index ASC").
		Find(&blocks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch progress",
		})
	}

	return c.JSON(fiber.Map{
		"blocks":         blocks,
		"memberProgress": plan.MemberProgress.Data(),
	})
}

// GetMyStreak returns the caller's streak counters.
func GetMyStreak(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(fiber.Map{
		"currentStreak":        user.CurrentStreak,
		"longestStreak":        user.LongestStreak,
		"totalStreak":          user.TotalStreak,
		"streakStartDate":      user.StreakStartDate,
		"lastStreakDate":       user.LastStreakDate,
		"nextStreakExpireDate": user.NextStreakExpireDate,
	})
}

// ReminderCheck reports whether the caller still has a block to finish
// today in any of their groups. Answers are cached briefly so clients
// polling around notification time do not hammer the group queries.
func ReminderCheck(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	atLeastOne := c.QueryBool("atLeastOne")

	// Cached answers are for the all-groups mode only; an atLeastOne
	// request must not read an all-groups false.
	if !atLeastOne {
		if done, ok := ReminderCache.Get(userID); ok {
			return c.JSON(fiber.Map{
				"success": true,
				"data": fiber.Map{
					"allCompleted": done,
					"cached":       true,
				},
			})
		}
	}

	var memberships []models.GroupMember
	if err := database.DB.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch memberships",
		})
	}
	groupIDs := make([]uuid.UUID, len(memberships))
	for i, m := range memberships {
		groupIDs[i] = m.GroupID
	}

	done, err := Completions.AllGroupsCompletedToday(c.Context(), userID, groupIDs, services.AggregatorOptions{
		AtLeastOne: atLeastOne,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check completion",
		})
	}

	if !atLeastOne {
		ReminderCache.Set(userID, done)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"allCompleted": done,
			"cached":       false,
		},
	})
}
