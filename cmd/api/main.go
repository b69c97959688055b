package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-api/internal/config"
	"github.com/codearena/arena-api/internal/database"
	"github.com/codearena/arena-api/internal/handler"
	"github.com/codearena/arena-api/internal/judge"
	"github.com/codearena/arena-api/internal/middleware"
	"github.com/codearena/arena-api/internal/models"
	"github.com/codearena/arena-api/internal/repository"
	"github.com/codearena/arena-api/internal/router"
	"github.com/codearena/arena-api/internal/scheduler"
	"github.com/codearena/arena-api/internal/service"
	"github.com/codearena/arena-api/pkg/judge0"
)

const verdictSubject = "arena.verdicts"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Problem{},
		&models.TestCase{},
		&models.Contest{},
		&models.ContestProblem{},
		&models.ContestParticipant{},
		&models.Submission{},
		&models.SubmissionResult{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	runner, err := judge0.New(judge0.Config{
		BaseURL: cfg.Judge0URL,
		APIKey:  cfg.Judge0APIKey,
		Timeout: cfg.Judge0Timeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create judge0 client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	contestRepo := repository.NewContestRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	events := service.NewVerdictEvents(natsConn, verdictSubject, logger)

	problemService := service.NewProblemService(problemRepo, validate, logger)
	contestService := service.NewContestService(contestRepo, validate, logger)
	leaderboardService := service.NewLeaderboardService(contestRepo, userRepo, redisClient, cfg.StandingsCacheTTL, logger)
	submissionService := service.NewSubmissionService(
		submissionRepo,
		problemRepo,
		contestRepo,
		runner,
		judge.NewScorer(nil),
		events,
		validate,
		logger,
	)
	finalizerService := service.NewFinalizerService(contestRepo, leaderboardService, service.FinalizerOptions{
		CreditOnlyUnranked: cfg.FinalizerCreditOnlyUnranked,
	}, logger)

	problemHandler := handler.NewProblemHandler(problemService, validate, logger)
	contestHandler := handler.NewContestHandler(contestService, leaderboardService, validate, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	liveHandler := handler.NewLiveHandler(events, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events.Start(ctx)

	finalizer := scheduler.New("finalizer", cfg.FinalizerInterval, func(jobCtx context.Context) error {
		_, err := finalizerService.FinalizeDue(jobCtx)
		return err
	}, logger)
	go finalizer.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProblemHandler:    problemHandler,
		ContestHandler:    contestHandler,
		SubmissionHandler: submissionHandler,
		LiveHandler:       liveHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app)
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
