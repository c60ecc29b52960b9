package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/sllt-wei/plugin-summary/internal/admission"
	"github.com/sllt-wei/plugin-summary/internal/api"
	"github.com/sllt-wei/plugin-summary/internal/bot"
	"github.com/sllt-wei/plugin-summary/internal/command"
	"github.com/sllt-wei/plugin-summary/internal/config"
	"github.com/sllt-wei/plugin-summary/internal/database"
	"github.com/sllt-wei/plugin-summary/internal/ingest"
	"github.com/sllt-wei/plugin-summary/internal/llm"
	"github.com/sllt-wei/plugin-summary/internal/render"
	"github.com/sllt-wei/plugin-summary/internal/repository"
	"github.com/sllt-wei/plugin-summary/internal/repository/memory"
	"github.com/sllt-wei/plugin-summary/internal/repository/postgres"
	"github.com/sllt-wei/plugin-summary/internal/summary"
	"github.com/sllt-wei/plugin-summary/internal/sweep"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if os.Getenv("SUMMARY_DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	records, meta, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}
	defer closeStore()

	llmTimeout := time.Duration(cfg.Summary.TimeoutSeconds) * time.Second
	client, err := llm.NewClient(cfg.OpenAI, llmTimeout, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize LLM client")
	}

	renderer := render.NewHTTPRenderer(cfg.Renderer.URL,
		time.Duration(cfg.Renderer.TimeoutSeconds)*time.Second)

	filter := ingest.NewFilter(cfg.Bot)
	parser := command.NewParser(client, logger)
	ctrl := admission.NewController(meta,
		time.Duration(cfg.Summary.CooldownSeconds)*time.Second, logger)
	orchestrator := summary.NewOrchestrator(records, meta, client, renderer, logger)
	handler := bot.NewHandler(cfg.Bot, filter, parser, ctrl, orchestrator,
		records, meta, bot.AllowNames(cfg.Admin.Names), logger)

	sweeper := sweep.New(records,
		time.Duration(cfg.Summary.RetentionHours)*time.Hour,
		cfg.Summary.PurgeSchedule, logger)
	if err := sweeper.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start retention sweep")
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName: "plugin-summary",
	})
	app.Use(recover.New())

	jwtSecret := cfg.Admin.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "change-me-in-production"
		logger.Warn("Using default admin JWT secret. Set SUMMARY_JWT_SECRET in production!")
	}
	api.SetupRoutes(app, handler, meta, jwtSecret, logger)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.WithField("addr", addr).Info("Server starting")
		if err := app.Listen(addr); err != nil {
			logger.WithError(err).Fatal("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	if err := app.Shutdown(); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}

// buildStore wires the PostgreSQL repositories, or the in-memory store when
// no database host is configured.
func buildStore(cfg *config.Config, logger *logrus.Logger) (repository.RecordRepository, repository.SessionMetaRepository, func(), error) {
	if cfg.Database.Host == "" {
		logger.Warn("No database configured, records will not survive restarts")
		return memory.NewRecordRepository(), memory.NewSessionMetaRepository(), func() {}, nil
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.RunMigrations(cfg.Database); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return postgres.NewRecordRepository(db.DB),
		postgres.NewSessionMetaRepository(db.DB),
		func() { db.Close() }, nil
}
