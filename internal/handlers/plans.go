package handlers

import (
	"errors"
	"time"

	"github.com/arnold/studyplans-api/internal/database"
	"github.com/arnold/studyplans-api/internal/middleware"
	"github.com/arnold/studyplans-api/internal/models"
	"github.com/arnold/studyplans-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Service singletons, wired up in main before the routes are mounted.
var (
	Plans         *services.PlanService
	Progress      *services.ProgressService
	Completions   *services.CompletionService
	ReminderCache *services.CompletionCache
)

// serviceError translates service sentinels into HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrOverlapRejected):
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

func CreateTemplate(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.Duration <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name and a positive duration are required",
		})
	}

	state := req.State
	if state == "" {
		state = models.TemplateDraft
	}

	template := models.PlanTemplate{
		AuthorID:    userID,
		Name:        req.Name,
		Description: req.Description,
		Pace:        req.Pace,
		Duration:    req.Duration,
		State:       state,
		Blocks:      datatypes.JSONSlice[models.Block](req.Blocks),
	}

	if err := database.DB.Create(&template).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create template",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func GetTemplates(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var templates []models.PlanTemplate
	if err := database.DB.Where("author_id = ?", userID).
		Order("created_at DESC").
		Find(&templates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch templates",
		})
	}

	return c.JSON(templates)
}

func GetTemplate(c *fiber.Ctx) error {
	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid template ID",
		})
	}

	var template models.PlanTemplate
	if err := database.DB.First(&template, "id = ?", templateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Template not found",
		})
	}

	return c.JSON(template)
}

type applyPlanRequest struct {
	TemplateID uuid.UUID `json:"templateId"`
	StartDate  time.Time `json:"startDate"`
}

// ApplyPlan instantiates a template for a group, resolving any overlap
// with plans already scheduled there.
func ApplyPlan(c *fiber.Ctx) error {
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

	var req applyPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.StartDate.IsZero() {
		req.StartDate = time.Now()
	}

	var template models.PlanTemplate
	if err := database.DB.First(&template, "id = ?", req.TemplateID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Template not found",
		})
	}

	instance, err := Plans.ApplyTemplateToGroup(userID, groupID, &template, req.StartDate)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Plan applied",
		"data":    instance,
	})
}

type checkOverlapRequest struct {
	StartDate time.Time `json:"startDate"`
	Duration  int       `json:"duration"`
	Pace      string    `json:"pace"`
}

// CheckPlanOverlap previews the overlap resolution for a prospective
// plan without writing anything.
func CheckPlanOverlap(c *fiber.Ctx) error {
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

	var req checkOverlapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	check, err := Plans.CheckOverlaps(groupID, req.StartDate, req.Duration, req.Pace)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Overlap check complete",
		"data":    check,
	})
}

// EndPlan terminates a plan instance early and lets the next scheduled
// plan (if any) take over.
func EndPlan(c *fiber.Ctx) error {
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

	if err := Plans.EndPlan(groupID, planID, userID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Plan ended",
	})
}

// ReevaluatePlans re-runs active plan selection for a group, promoting
// a scheduled plan whose start has arrived.
func ReevaluatePlans(c *fiber.Ctx) error {
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

	if err := Plans.Reevaluate(groupID); err != nil {
		return serviceError(c, err)
	}

	var group models.Group
	if err := database.DB.First(&group, "id = ?", groupID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Group not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Plans reevaluated",
		"data": fiber.Map{
			"activeGoal": group.ActiveGoal.Data(),
		},
	})
}

func GetGroupPlans(c *fiber.Ctx) error {
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

	var plans []models.PlanInstance
	if err := database.DB.Where("group_id = ?", groupID).
		Order("start_date ASC").
		Find(&plans).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch plans",
		})
	}

	return c.JSON(plans)
}

func GetPlan(c *fiber.Ctx) error {
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

	return c.JSON(plan)
}
