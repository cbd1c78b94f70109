package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"

	"azlistings/internal/handlers"
	"azlistings/internal/middleware"
	"azlistings/internal/models"
	"azlistings/internal/repositories"
	"azlistings/internal/services"
	"azlistings/pkg/database"
	"azlistings/pkg/rabbitmq"

	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATA_FILE", "./data/properties.json")
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_DSN", "./data/azlistings.db")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("JWT_SECRET", "")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	dataFile := viper.GetString("DATA_FILE")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")
	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	// --- Admin account database ---
	db, err := database.Connect(viper.GetString("DB_DRIVER"), viper.GetString("DATABASE_DSN"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- RabbitMQ (optional) ---
	// Listing events are best effort; the site must keep serving without a
	// broker, so a connection failure downgrades to a warning.
	var mqClient *rabbitmq.Client
	if rabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Printf("Warning: failed to initialize RabbitMQ client, continuing without events: %v", err)
			mqClient = nil
		} else {
			defer mqClient.Close()
		}
	} else {
		log.Println("RABBITMQ_URL not set, listing events disabled")
	}

	// --- Initialize Repositories ---
	propertyRepo := repositories.NewFilePropertyRepository(dataFile)
	userRepo := repositories.NewGORMUserRepository(db)

	// --- Initialize Services ---
	propertyService := services.NewPropertyService(propertyRepo, mqClient)
	authService := services.NewAuthService(userRepo, jwtSecret)

	// Seed the default catalog up front so the first page view does not pay
	// the seeding write.
	if properties, err := propertyService.ListProperties(); err != nil {
		log.Fatalf("Failed to initialize property store at %s: %v", dataFile, err)
	} else {
		log.Printf("Property store ready with %d listings at %s", len(properties), dataFile)
	}

	seedAdminUser(authService)

	// --- Initialize Handlers ---
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	authHandler := handlers.NewAuthHandler(authService)

	// --- Initialize Fiber App ---
	app := fiber.New()

	// --- Middleware ---
	app.Use(logger.New()) // Request logger

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")

	// Public surface: the read-only listing routes and auth.
	authHandler.RegisterRoutes(apiV1)
	propertyHandler.RegisterPublicRoutes(apiV1)

	// Admin surface: listing writes behind JWT auth.
	adminRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	propertyHandler.RegisterAdminRoutes(adminRoutes)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start RabbitMQ Consumer in a Goroutine ---
	// The in-process consumer just logs deliveries; real consumers (cache
	// invalidation, notifications) run as separate services on the same queue.
	if mqClient != nil {
		go func() {
			log.Println("Starting RabbitMQ consumer for listing events...")
			messageHandler := func(msg amqp.Delivery) error {
				log.Printf("Received listing event (Tag: %d): %s", msg.DeliveryTag, string(msg.Body))
				return nil
			}
			if consumerErr := mqClient.ConsumeListingEvents(messageHandler); consumerErr != nil {
				log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
			}
		}()
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", appPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// seedAdminUser creates the bootstrap admin account from ADMIN_USERNAME /
// ADMIN_PASSWORD when both are set. An account that already exists is left
// alone.
func seedAdminUser(authService *services.AuthService) {
	username := viper.GetString("ADMIN_USERNAME")
	password := viper.GetString("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return
	}

	email := viper.GetString("ADMIN_EMAIL")
	if email == "" {
		email = username + "@localhost"
	}

	err := authService.RegisterUser(&models.User{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already taken") || strings.Contains(err.Error(), "already registered") {
			log.Printf("Admin user %s already exists", username)
			return
		}
		log.Printf("Warning: failed to seed admin user %s: %v", username, err)
		return
	}
	log.Printf("Seeded admin user %s", username)
}
