package main

import (
	"context"                         // context package is needed for Redis operations
	"log"                             // log package is needed for logging
	"user_system/internal/api"        // Custom package for API handlers
	"user_system/internal/config"     // Custom package for configuration
	"user_system/internal/middleware" // Custom package for middleware
	"user_system/internal/storage"    // Custom package for media storage

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database.
	// TranslateError maps driver duplicate-key failures onto
	// gorm.ErrDuplicatedKey, which registration relies on.
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Setup the media root for uploaded files
	store, err := storage.NewLocalStorage(cfg.MediaRoot)
	if err != nil {
		logrus.Fatalf("failed to prepare media root: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user/register", api.RegisterHandler(db))                         // Registration endpoint
	r.POST("/user/login", api.LoginHandler(db, cfg.JWTSecret))                // Login endpoint
	r.POST("/user/token/refresh", api.RefreshTokenHandler(db, cfg.JWTSecret)) // Token refresh endpoint
	r.POST("/user/token/verify", api.VerifyTokenHandler(cfg.JWTSecret))       // Token verify endpoint

	// Media retrieval
	r.GET("/user/file/:name", api.FileHandler(store)) // Stored file retrieval endpoint

	// User routes (protected by JWT)
	userGroup := r.Group("/user")
	userGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))                                  // Protect user routes with JWT middleware
	userGroup.GET("/:id", api.GetUserHandler(db, redisClient, cfg.BaseURL))                     // Profile retrieval endpoint
	userGroup.POST("/:id/avatar", api.UploadAvatarHandler(db, redisClient, store, cfg.BaseURL)) // Avatar upload endpoint
	userGroup.POST("/address", api.CreateAddrHandler(db))                                       // Address creation endpoint
	userGroup.GET("/address", api.ListAddrHandler(db))                                          // Address listing endpoint
	userGroup.PUT("/address/:id", api.UpdateAddrHandler(db))                                    // Address update endpoint
	userGroup.DELETE("/address/:id", api.DeleteAddrHandler(db))                                 // Address deletion endpoint
	userGroup.PUT("/address/:id/default", api.SetDefaultAddrHandler(db))                        // Default address endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))          // List users endpoint
	adminGroup.GET("/addresses", api.ListAddrsAdminHandler(db, redisClient)) // List addresses endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
