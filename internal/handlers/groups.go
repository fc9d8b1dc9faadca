package handlers

import (
	"time"

	"github.com/arnold/studyplans-api/internal/database"
	"github.com/arnold/studyplans-api/internal/middleware"
	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/realtime"
	"github.com/arnold/studyplans-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func CreateGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Group name is required",
		})
	}

	group := models.Group{
		OwnerID:  userID,
		Name:     req.Name,
		Image:    req.Image,
		TimeZone: req.TimeZone,
	}

	if err := database.DB.Create(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create group",
		})
	}

	// Owner joins their own group
	member := models.GroupMember{
		GroupID: group.ID,
		UserID:  userID,
		Role:    "owner",
	}
	if err := database.DB.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add owner to group",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

func GetGroups(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

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

	var groups []models.Group
	if len(groupIDs) > 0 {
		if err := database.DB.Where("id IN ?", groupIDs).
			Order("created_at DESC").
			Find(&groups).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to fetch groups",
			})
		}
	}

	return c.JSON(groups)
}

func GetGroup(c *fiber.Ctx) error {
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

	var group models.Group
	if err := database.DB.
		Preload("Members").
		Preload("Members.User").
		First(&group, "id = ?", groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	return c.JSON(group)
}

func UpdateGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	var group models.Group
	if err := database.DB.First(&group, "id = ?", groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	if group.OwnerID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the owner can update the group",
		})
	}

	var req models.UpdateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Image != nil {
		group.Image = *req.Image
	}
	if req.TimeZone != nil {
		group.TimeZone = *req.TimeZone
	}

	if err := database.DB.Save(&group).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update group",
		})
	}

	return c.JSON(group)
}

func JoinGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := c.BodyParser(&req); err != nil || req.InviteCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invite code is required",
		})
	}

	var group models.Group
	if err := database.DB.Where("invite_code = ?", req.InviteCode).First(&group).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invalid invite code",
		})
	}

	var existing models.GroupMember
	if err := database.DB.Where("group_id = ? AND user_id = ?", group.ID, userID).
		First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Already a member of this group",
		})
	}

	member := models.GroupMember{
		GroupID:  group.ID,
		UserID:   userID,
		Role:     "member",
		JoinedAt: time.Now(),
	}
	if err := database.DB.Create(&member).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to join group",
		})
	}

	services.LogActivity(database.DB, group.ID, userID, "member_joined", nil, nil)
	realtime.WS.Broadcast(group.ID, userID, realtime.Event{
		Type:    realtime.EventMemberJoined,
		GroupID: group.ID.String(),
		UserID:  userID.String(),
	})

	return c.Status(fiber.StatusCreated).JSON(group)
}

func GetGroupMembers(c *fiber.Ctx) error {
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

	var members []models.GroupMember
	if err := database.DB.Where("group_id = ?", groupID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch members",
		})
	}

	return c.JSON(members)
}

func LeaveGroup(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	groupID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid group ID",
		})
	}

	var group models.Group
	if err := database.DB.First(&group, "id = ?", groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	if group.OwnerID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The owner cannot leave their own group",
		})
	}

	result := database.DB.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to leave group",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not a member of this group",
		})
	}

	services.LogActivity(database.DB, groupID, userID, "member_left", nil, nil)
	realtime.WS.Broadcast(groupID, userID, realtime.Event{
		Type:    realtime.EventMemberLeft,
		GroupID: groupID.String(),
		UserID:  userID.String(),
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Left group",
	})
}

// isGroupMember checks membership without loading the whole group
func isGroupMember(groupID, userID uuid.UUID) bool {
	var count int64
	database.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count)
	return count > 0
}
