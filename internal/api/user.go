package api

import (
	"context"                      // Context for Redis operations
	"net/http"                     // HTTP status codes
	"os"                           // File existence checks
	"strconv"                      // String conversion
	"time"                         // Time durations
	"user_system/internal/domain"  // Importing domain models
	"user_system/internal/storage" // Media storage
	"user_system/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// MaxAvatarBytes caps avatar uploads at 300 KiB
const MaxAvatarBytes = 300 * 1024

// ProfileResponse is the public view of a user record
type ProfileResponse struct {
	ID       uint   `json:"id"`       // User ID
	Username string `json:"username"` // Username
	Mobile   string `json:"mobile"`   // Mobile
	Email    string `json:"email"`    // Email
	Avatar   string `json:"avatar"`   // Retrieval URL, empty when unset
}

// avatarURL builds the public retrieval URL for a stored filename
func avatarURL(baseURL, name string) string {
	if name == "" {
		return "" // No avatar uploaded yet
	}
	return baseURL + "/user/file/" + name
}

// GetUserHandler returns the profile of a user; only the user itself or
// an administrator may read it
func GetUserHandler(db *gorm.DB, rdb *redis.Client, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requesterID, exists := c.Get("userID") // Get userID from context
		// Check if userID exists in context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		targetID, err := strconv.Atoi(c.Param("id")) // Parse target user ID
		if err != nil || targetID <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrUserNotFound.Error()})
			return
		}
		ctx := context.Background()                          // Context for Redis operations
		cacheKey := "user:profile:" + strconv.Itoa(targetID) // Cache key for profile
		var profile ProfileResponse
		cached, err := utils.GetCache(ctx, rdb, cacheKey, &profile) // Try to get from cache
		if err != nil {
			cached = false // Treat cache failures as misses
		}
		// A cached profile proves the target exists; on a miss the fetch
		// settles existence before the policy check so an absent target
		// reads as not-found rather than forbidden
		if !cached {
			var user domain.User
			if err := db.First(&user, targetID).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": ErrUserNotFound.Error()})
				return
			}
			profile = ProfileResponse{
				ID:       user.ID,                         // User ID
				Username: user.Username,                   // Username
				Mobile:   user.Mobile,                     // Mobile
				Email:    user.Email,                      // Email
				Avatar:   avatarURL(baseURL, user.Avatar), // Retrieval URL
			}
		}
		// Ownership-or-admin policy
		if !ownsOrAdmin(db, requesterID.(uint), uint(targetID)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "无权访问该用户"})
			return
		}
		if !cached {
			_ = utils.SetCache(ctx, rdb, cacheKey, profile, 60*time.Second) // Cache the profile for 60 seconds
		}
		c.JSON(http.StatusOK, gin.H{"user": profile, "cached": cached}) // Return profile
	}
}

// UploadAvatarHandler stores a user's avatar under the media root and
// updates the account's avatar reference
func UploadAvatarHandler(db *gorm.DB, rdb *redis.Client, store *storage.LocalStorage, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requesterID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		targetID, err := strconv.Atoi(c.Param("id")) // Parse target user ID
		if err != nil || targetID <= 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrUserNotFound.Error()})
			return
		}
		var user domain.User // The target must exist before the policy check
		if err := db.First(&user, targetID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrUserNotFound.Error()})
			return
		}
		// Ownership-or-admin policy
		if !ownsOrAdmin(db, requesterID.(uint), uint(targetID)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "无权修改该用户"})
			return
		}
		file, err := c.FormFile("avatar") // Read the uploaded part
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "请选择要上传的文件"})
			return
		}
		// Reject empty payloads
		if file.Size == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "上传文件不能为空"})
			return
		}
		// Reject payloads above the avatar cap
		if file.Size > MaxAvatarBytes {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "文件大小不能超过300KB"})
			return
		}
		name, err := store.SaveUpload(file) // Store under the media root
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": targetID,    // Target user ID
				"error":   err.Error(), // Error message
			}).Error("Avatar store failed") // Log store failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "头像保存失败"})
			return
		}
		// Update the account's avatar reference
		if err := db.Model(&user).Update("avatar", name).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": targetID,    // Target user ID
				"error":   err.Error(), // Error message
			}).Error("Avatar update failed") // Log update failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "头像更新失败"})
			return
		}
		// Invalidate the cached profile
		_ = utils.DeleteCache(context.Background(), rdb, "user:profile:"+strconv.Itoa(targetID))
		c.JSON(http.StatusOK, gin.H{"url": avatarURL(baseURL, name)}) // Return the retrieval URL
	}
}

// FileHandler serves a stored file by name from the media root. Names
// carrying traversal sequences resolve to not-found, never to a path
// outside the root.
func FileHandler(store *storage.LocalStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")          // Requested filename
		path, err := store.Resolve(name) // Reject traversal attempts
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		// The file must exist under the media root
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		c.File(path) // Stream the file content
	}
}
