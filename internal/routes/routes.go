package routes

import (
	"github.com/arnold/studyplans-api/internal/handlers"
	"github.com/arnold/studyplans-api/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func Setup(app *fiber.App) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)

	protected := api.Group("/", middleware.Protected())

	protected.Get("/me", handlers.GetMe)
	protected.Put("/me", handlers.UpdateProfile)
	protected.Get("/me/streak", handlers.GetMyStreak)
	protected.Get("/me/reminder-check", handlers.ReminderCheck)

	// Plan templates
	templates := protected.Group("/templates")
	templates.Get("/", handlers.GetTemplates)
	templates.Post("/", handlers.CreateTemplate)
	templates.Get("/:id", handlers.GetTemplate)

	groups := protected.Group("/groups")
	groups.Get("/", handlers.GetGroups)
	groups.Post("/", handlers.CreateGroup)
	groups.Post("/join", handlers.JoinGroup)
	groups.Get("/:id", handlers.GetGroup)
	groups.Put("/:id", handlers.UpdateGroup)
	groups.Get("/:id/members", handlers.GetGroupMembers)
	groups.Post("/:id/leave", handlers.LeaveGroup)
	groups.Get("/:id/activity", handlers.GetGroupActivity)

	// Plan scheduling
	groups.Get("/:id/plans", handlers.GetGroupPlans)
	groups.Post("/:id/plans", handlers.ApplyPlan)
	groups.Post("/:id/plans/check-overlap", handlers.CheckPlanOverlap)
	groups.Post("/:id/plans/reevaluate", handlers.ReevaluatePlans)
	groups.Get("/:id/plans/:planId", handlers.GetPlan)
	groups.Post("/:id/plans/:planId/end", handlers.EndPlan)

	// Progress & discussion
	groups.Post("/:id/plans/:planId/progress", handlers.RecordStudyProgress)
	groups.Get("/:id/plans/:planId/progress", handlers.GetPlanProgress)
	groups.Get("/:id/plans/:planId/threads", handlers.GetPlanThreads)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Post("/read-all", handlers.MarkAllNotificationsRead)

	// Device token for push notifications
	protected.Post("/device-token", handlers.RegisterDeviceToken)

	// WebSocket for real-time group updates
	app.Use("/ws", handlers.WebSocketUpgrade())
	app.Get("/ws/groups/:id", websocket.New(handlers.HandleWebSocket))
}
