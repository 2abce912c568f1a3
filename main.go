package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"investment-reward-system/handlers"
	"investment-reward-system/middleware"
	"investment-reward-system/models"
	"investment-reward-system/services"
	"investment-reward-system/utils"
	"investment-reward-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB — proof images only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Investment{},
		&models.ProductTask{},
		&models.Transaction{},
		&models.Referral{},
		&models.Notification{},
		&models.PaymentEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	rewardConfig := services.LoadRewardConfig()

	notificationService := services.NewNotificationService(db)
	taskService := services.NewTaskService(db, notificationService)
	referralService := services.NewReferralService(db, rewardConfig, notificationService)
	userService := services.NewUserService(db, rewardConfig, notificationService)
	productService := services.NewProductService(db, taskService)
	transactionService := services.NewTransactionService(db, referralService, notificationService)

	// --- Payment provider polling ---
	providerURL := os.Getenv("PAYMENT_PROVIDER_URL")
	providerToken := os.Getenv("PAYMENT_PROVIDER_TOKEN")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if providerURL != "" && providerToken != "" {
		paymentWorker := workers.NewPaymentSyncWorker(db, providerURL, "/api/v1/public/settlements", providerToken)
		paymentWorker.Start(ctx)
	} else {
		log.Println("⚠️  PAYMENT_PROVIDER_URL/TOKEN not set — deposit auto-confirmation disabled")
	}

	taskService.StartTaskScheduler()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupProductRoutes(app, productService, userService)
	handlers.SetupTaskRoutes(app, taskService, userService)
	handlers.SetupUserRoutes(app, userService, referralService, notificationService)
	handlers.SetupTransactionRoutes(app, transactionService, userService)
	handlers.SetupAdminRoutes(app, transactionService, productService, userService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Task reset scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
