package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	config "github.com/zinye/socialflow/configs"
	"github.com/zinye/socialflow/internal/api/handlers"
	"github.com/zinye/socialflow/internal/api/middleware"
	job "github.com/zinye/socialflow/internal/jobs"
	"github.com/zinye/socialflow/internal/queue"
	"github.com/zinye/socialflow/internal/repository"
	"github.com/zinye/socialflow/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	publishHistoryRepo := repository.NewPublishHistoryRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	enqueuer := queue.NewClient(asynqClient)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	publisher := service.NewPublisher(*cfg, postMediaRepo, mediaAssetRepo)
	schedulerService := service.NewSchedulerService(*cfg, postRepo, profileRepo, publishHistoryRepo, publisher, enqueuer)
	analyticsService := service.NewAnalyticsService(*cfg, postRepo, profileRepo, analyticsRepo)
	postService := service.NewPostService(*cfg, db, postRepo, profileRepo, settingsRepo, mediaAssetRepo, postMediaRepo, r2Service, schedulerService)
	profileService := service.NewProfileService(*cfg, profileRepo)
	settingsService := service.NewSettingsService(*cfg, settingsRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	profile := handlers.NewProfileHandler(*cfg, profileService, analyticsService)
	api.Get("/profiles/connect", profile.ConnectProfile)
	api.Get("/profiles/callback", profile.CallbackHandler)
	api.Get("/profiles", profile.ListProfiles)
	api.Post("/profiles/remove", profile.DeleteProfile)
	api.Post("/profiles/sync", profile.SyncProfileAnalytics)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)
	api.Post("/settings/update", settings.UpdateSettings)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, schedulerService, analyticsService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)
	api.Post("/posts/duplicate", post.DuplicatePost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/publish", post.PublishNow)
	api.Post("/posts/approve", post.ApprovePost)
	api.Post("/posts/reject", post.RejectPost)
	api.Post("/posts/reschedule", post.ReschedulePost)
	api.Post("/posts/cancel", post.CancelPost)
	api.Post("/posts/analytics/sync", post.SyncAnalytics)
	api.Get("/posts/analytics", post.AnalyticsHistory)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(*cfg, profileRepo)

	c := cron.New()
	c.AddFunc("@every 00h05m00s", func() {
		if err := schedulerService.ProcessDuePosts(context.Background()); err != nil {
			log.Printf("Error processing due posts: %v", err)
		}
	})
	c.AddFunc("@every 06h00m00s", func() {
		if err := analyticsService.SyncAll(context.Background()); err != nil {
			log.Printf("Error syncing analytics: %v", err)
		}
	})
	c.AddFunc("@every 24h00m00s", func() {
		if err := schedulerService.RecoverStuckPosts(context.Background()); err != nil {
			log.Printf("Error recovering stuck posts: %v", err)
		}
	})
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		worker := queue.NewWorker(schedulerService, analyticsService)
		worker.Register(mux)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
