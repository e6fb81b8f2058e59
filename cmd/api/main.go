package main

import (
	"context"
	"log"
	"os"

	_ "procurement-backend/api/swagger" // swagger docs
	"procurement-backend/internal/cache"
	"procurement-backend/internal/database"
	"procurement-backend/internal/handler"
	"procurement-backend/internal/middleware"
	"procurement-backend/internal/repository"
	"procurement-backend/internal/service"
	"procurement-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Procurement Management API
// @version         1.0
// @description     Supplier, contract, and payment lifecycle management with role-based access control.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Redis-backed cache; a failed connection disables caching, not the server
	cacheStore := cache.NewStore(cache.NewRedisClient())

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	contractRepo := repository.NewContractRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	permRepo := repository.NewPermissionRepository(db)

	// Services
	permService := service.NewPermissionService(permRepo, cacheStore)
	if err := permService.SeedDefaults(context.Background()); err != nil {
		log.Printf("WARNING: failed to seed default permissions: %v", err)
	}
	auditService := service.NewAuditService(auditRepo, permService)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, wsHub)
	userService := service.NewUserService(userRepo, refreshRepo, permService, auditService)
	supplierService := service.NewSupplierService(supplierRepo, categoryRepo, permService, auditService, notificationService, cacheStore, wsHub, txManager)
	contractService := service.NewContractService(contractRepo, supplierRepo, permService, auditService, notificationService, cacheStore, wsHub, txManager)
	paymentService := service.NewPaymentService(paymentRepo, supplierRepo, contractRepo, permService, auditService, notificationService, cacheStore, wsHub, txManager)
	registrationService := service.NewRegistrationService(supplierRepo, categoryRepo, auditService, notificationService, cacheStore, wsHub)
	categoryService := service.NewCategoryService(categoryRepo, permService, auditService)
	documentService := service.NewDocumentService(documentRepo, supplierRepo, contractRepo, paymentRepo, permService, auditService, cacheStore)
	statisticsService := service.NewStatisticsService(db, permService, cacheStore)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	supplierHandler := handler.NewSupplierHandler(supplierService)
	contractHandler := handler.NewContractHandler(contractService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	registrationHandler := handler.NewRegistrationHandler(registrationService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	documentHandler := handler.NewDocumentHandler(documentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	auditHandler := handler.NewAuditHandler(auditService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Request provenance for audit rows
	router.Use(middleware.RequestMeta())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	registrationHandler.RegisterRoutes(api)
	supplierHandler.RegisterRoutes(api)
	contractHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)
	categoryHandler.RegisterRoutes(api)
	documentHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)
	statisticsHandler.RegisterRoutes(api)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
