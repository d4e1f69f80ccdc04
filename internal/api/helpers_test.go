package api

import (
	"testing"
	"user_system/internal/domain"
	"user_system/internal/middleware"
	"user_system/internal/storage"
	"user_system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret  = "test-secret"
	testBaseURL = "http://localhost:8000"
)

// newTestDB opens an in-memory database with the production schema.
// The pool is pinned to one connection so every query sees the same
// in-memory store, and foreign keys are enabled for cascade behavior.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	assert.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	assert.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Addr{}, &domain.VerifCode{}, &domain.Area{}))
	return db
}

// newTestRouter wires the handlers the way cmd/server does, without a
// Redis client (the cache helpers treat a nil client as a miss).
func newTestRouter(db *gorm.DB, store *storage.LocalStorage) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/user/register", RegisterHandler(db))
	r.POST("/user/login", LoginHandler(db, testSecret))
	r.POST("/user/token/refresh", RefreshTokenHandler(db, testSecret))
	r.POST("/user/token/verify", VerifyTokenHandler(testSecret))
	r.GET("/user/file/:name", FileHandler(store))

	userGroup := r.Group("/user")
	userGroup.Use(middleware.JWTAuthMiddleware(testSecret))
	userGroup.GET("/:id", GetUserHandler(db, nil, testBaseURL))
	userGroup.POST("/:id/avatar", UploadAvatarHandler(db, nil, store, testBaseURL))
	userGroup.POST("/address", CreateAddrHandler(db))
	userGroup.GET("/address", ListAddrHandler(db))
	userGroup.PUT("/address/:id", UpdateAddrHandler(db))
	userGroup.DELETE("/address/:id", DeleteAddrHandler(db))
	userGroup.PUT("/address/:id/default", SetDefaultAddrHandler(db))

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(testSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", ListUsersHandler(db, nil))
	adminGroup.GET("/addresses", ListAddrsAdminHandler(db, nil))

	return r
}

// newTestStore returns a media store rooted in a per-test temp dir
func newTestStore(t *testing.T) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	assert.NoError(t, err)
	return store
}

// seedUser inserts a user with a bcrypt-hashed password
func seedUser(t *testing.T, db *gorm.DB, username, email, mobile, password string, superuser bool) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	user := domain.User{
		Username:    username,
		Email:       email,
		Mobile:      mobile,
		Password:    string(hash),
		IsActive:    true,
		IsSuperuser: superuser,
	}
	assert.NoError(t, db.Create(&user).Error)
	return user
}

// bearer returns an Authorization header value for a user
func bearer(t *testing.T, user *domain.User) string {
	t.Helper()
	token, err := utils.GenerateAccessToken(user, testSecret)
	assert.NoError(t, err)
	return "Bearer " + token
}
