package handlers

import (
	"github.com/arnold/studyplans-api/internal/database"
	"github.com/arnold/studyplans-api/internal/middleware"
	"github.com/arnold/studyplans-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetGroupActivity returns the group's event feed, newest first.
func GetGroupActivity(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	if !isGroupMember(groupID, userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not a member of this group",
		})
	}

	limit := c.QueryInt("limit", 30)
	if limit > 100 {
		limit = 100
	}
	offset := c.QueryInt("offset", 0)

	var activities []models.ActivityLog
	if err := database.DB.Where("group_id = ?", groupID).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&activities).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch activity",
		})
	}

	return c.JSON(activities)
}
