package main

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arnold/studyplans-api/internal/config"
	"github.com/arnold/studyplans-api/internal/database"
	"github.com/arnold/studyplans-api/internal/handlers"
	"github.com/arnold/studyplans-api/internal/logging"
	"github.com/arnold/studyplans-api/internal/middleware"
	"github.com/arnold/studyplans-api/internal/routes"
	"github.com/arnold/studyplans-api/internal/services"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if err := logging.Init(); err != nil {
		panic(err)
	}
	defer logging.Sync()
	log := logging.L

	cfg := config.Load()
	middleware.Init(cfg.JWTSecret)

	if err := database.Connect(cfg); err != nil {
		log.Fatalw("database connect failed", "err", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalw("database migrate failed", "err", err)
	}

	if err := services.InitPush(cfg.FCMServiceAccount); err != nil {
		log.Warnw("push disabled", "err", err)
	}

	threads := services.NewThreadService(database.DB, log)
	streaks := services.NewStreakService(database.DB, log)

	handlers.Plans = services.NewPlanService(database.DB, threads, log)
	handlers.Progress = services.NewProgressService(database.DB, streaks, log)
	handlers.Completions = services.NewCompletionService(
		database.DB, log,
		cfg.CompletionBatchSize,
		time.Duration(cfg.CompletionBatchDelayMs)*time.Millisecond,
	)
	handlers.ReminderCache = services.NewCompletionCache(5 * time.Minute)

	app := fiber.New(fiber.Config{
		AppName: "studyplans-api",
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	routes.Setup(app)

	log.Infow("server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalw("server stopped", "err", err)
	}
}
