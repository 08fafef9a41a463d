package main

import (
	"context"
	"flag"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/taskmesh/marketplace/config"
	"github.com/taskmesh/marketplace/internal/db"
	"github.com/taskmesh/marketplace/internal/events"
	"github.com/taskmesh/marketplace/internal/logger"
	"github.com/taskmesh/marketplace/internal/marketplace"
	"github.com/taskmesh/marketplace/internal/marketplace/rewards"
	"github.com/taskmesh/marketplace/pkg/api/v1/handlers"
	"github.com/taskmesh/marketplace/pkg/api/v1/middleware"
	"github.com/taskmesh/marketplace/pkg/api/v1/routes"
)

func main() {
	configPath := flag.String("config", "marketd.yaml", "Path to the configuration file")
	flag.Parse()

	// Optional; environment variables may come from the actual environment
	_ = godotenv.Load()

	logger.Initialize()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sslEnabled := cfg.Database.SSLMode == "enable"
	database, err := db.New(db.Options{
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		DBName:     cfg.Database.Name,
		SSLEnabled: &sslEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	events.Start(context.Background())

	rewardManager := rewards.NewManager(database)
	attestations := marketplace.NewStoredAttestations(database)
	service := marketplace.NewService(database, marketplace.Options{
		Rewards:         rewardManager,
		Assets:          marketplace.NewAssetAllowlist(cfg.AcceptedAssets...),
		Attestation:     attestations,
		ReportTolerance: cfg.ReportTolerance,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})
	app.Use(middleware.Logger())

	routes.RegisterRoutes(app,
		handlers.NewAdvertisementHandler(service),
		handlers.NewJobHandler(service),
		handlers.NewMatchHandler(service),
		handlers.NewAccountHandler(rewardManager, attestations),
	)

	logger.Infof("Listening on %s", cfg.ListenAddress)
	log.Fatal(app.Listen(cfg.ListenAddress))
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
