package main

import (
	"coffeeshop-service/internal/handler"
	"coffeeshop-service/internal/middleware"
	"coffeeshop-service/internal/model"
	"coffeeshop-service/pkg/config"
	"coffeeshop-service/pkg/database"
	"coffeeshop-service/pkg/jwtutil"
	"coffeeshop-service/pkg/logger"
	"coffeeshop-service/pkg/validate"
	"coffeeshop-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting coffeeshop service...", cfg.LogConfig()...)

	// Initialize database
	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Run migrations for all persisted models
	if err := database.MigrateModels(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Echo framework
	e := echo.New()
	e.Validator = validate.EchoValidator{}

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	auth := e.Group("/api/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/logout", handler.Logout, middleware.Authenticate)

	// Menu routes - public reads, admin-only mutation
	menu := e.Group("/api/menu")
	adminOnly := []echo.MiddlewareFunc{middleware.Authenticate, middleware.RequireRoles(model.RoleAdmin)}

	menu.GET("/categories", handler.ListCategories)
	menu.GET("/categories/:id", handler.GetCategory)
	menu.POST("/categories", handler.CreateCategory, adminOnly...)
	menu.PUT("/categories/:id", handler.UpdateCategory, adminOnly...)
	menu.DELETE("/categories/:id", handler.DeleteCategory, adminOnly...)

	menu.GET("/product", handler.ListProducts)
	menu.GET("/product/:id", handler.GetProduct)
	menu.POST("/product", handler.CreateProduct, adminOnly...)
	menu.PUT("/product/:id", handler.UpdateProduct, adminOnly...)
	menu.DELETE("/product/:id", handler.DeleteProduct, adminOnly...)

	// Order routes - all require authentication; role rules are enforced by
	// the workflow itself
	orders := e.Group("/api/orders", middleware.Authenticate)
	orders.POST("", handler.CreateOrder)
	orders.GET("", handler.ListOrders)
	orders.PUT("/:orderId", handler.UpdateOrderStatus)
	orders.DELETE("/:orderId", handler.DeleteOrder)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
