package api

import (
	"net/http"                    // HTTP status codes
	"strconv"                     // String conversion
	"user_system/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Request struct for creating or updating an address
type AddrRequest struct {
	Name      string `json:"name" binding:"required"`     // Recipient name
	Phone     string `json:"phone" binding:"required"`    // Recipient phone
	Province  string `json:"province" binding:"required"` // Province
	City      string `json:"city" binding:"required"`     // City
	County    string `json:"county" binding:"required"`   // County
	IsDefault bool   `json:"is_default"`                  // Make this the default address
}

// findAddr resolves an address by path parameter and enforces the
// ownership-or-admin policy. A nil return means the response was
// already written.
func findAddr(c *gin.Context, db *gorm.DB) *domain.Addr {
	requesterID, exists := c.Get("userID") // Get userID from context
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return nil
	}
	addrID, err := strconv.Atoi(c.Param("id")) // Parse address ID
	if err != nil || addrID <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "地址不存在"})
		return nil
	}
	var addr domain.Addr // Fetch address from database
	if err := db.First(&addr, addrID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "地址不存在"})
		return nil
	}
	// Ownership-or-admin policy
	if !ownsOrAdmin(db, requesterID.(uint), addr.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "无权操作该地址"})
		return nil
	}
	return &addr
}

// CreateAddrHandler creates a shipping address owned by the requester
func CreateAddrHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		var req AddrRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "无效的请求数据"})
			return
		}
		// The owner is always the requester, never a client-supplied field
		addr := domain.Addr{
			UserID:    userID.(uint), // Owning user
			Name:      req.Name,      // Recipient name
			Phone:     req.Phone,     // Recipient phone
			Province:  req.Province,  // Province
			City:      req.City,      // City
			County:    req.County,    // County
			IsDefault: req.IsDefault, // Default flag
		}
		// Creating a new default must also clear any existing default, so
		// both writes commit atomically
		err := db.Transaction(func(tx *gorm.DB) error {
			if req.IsDefault {
				// Clear the flag on every other address of this user
				if err := tx.Model(&domain.Addr{}).Where("user_id = ?", addr.UserID).
					Update("is_default", false).Error; err != nil {
					return err // Return error to rollback
				}
			}
			return tx.Create(&addr).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": addr.UserID, // Owning user
				"error":   err.Error(), // Error message
			}).Error("Address creation failed") // Log creation failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "创建地址失败"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"addr": addr}) // Return the new address
	}
}

// ListAddrHandler returns the requester's addresses. The owner filter is
// applied server-side; client-supplied filters are ignored so no account
// can list another account's addresses.
func ListAddrHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		var addrs []domain.Addr // Slice to hold addresses
		if err := db.Where("user_id = ?", userID).Find(&addrs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "获取地址失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"addrs": addrs}) // Return the address list
	}
}

// UpdateAddrHandler rewrites the contact fields of an address. The
// default flag is only mutated through SetDefaultAddrHandler so the
// one-default invariant cannot be bypassed here.
func UpdateAddrHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := findAddr(c, db) // Resolve and authorize
		if addr == nil {
			return // Response already written
		}
		var req AddrRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "无效的请求数据"})
			return
		}
		// Update the contact fields only
		updates := map[string]any{
			"name":     req.Name,     // Recipient name
			"phone":    req.Phone,    // Recipient phone
			"province": req.Province, // Province
			"city":     req.City,     // City
			"county":   req.County,   // County
		}
		if err := db.Model(addr).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新地址失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"addr": addr}) // Return the updated address
	}
}

// DeleteAddrHandler removes an address owned by the requester
func DeleteAddrHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := findAddr(c, db) // Resolve and authorize
		if addr == nil {
			return // Response already written
		}
		if err := db.Delete(addr).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "删除地址失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "删除成功"}) // Confirm deletion
	}
}

// SetDefaultAddrHandler marks an address as the owner's default. Both
// steps run in one transaction, clear first then set, so two concurrent
// calls can never commit two defaults and a crash can never leave the
// target cleared.
func SetDefaultAddrHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := findAddr(c, db) // Resolve and authorize
		if addr == nil {
			return // Response already written
		}
		// Atomic clear-then-set scoped to the owning user
		err := db.Transaction(func(tx *gorm.DB) error {
			// Clear the flag on all of the owner's addresses
			if err := tx.Model(&domain.Addr{}).Where("user_id = ?", addr.UserID).
				Update("is_default", false).Error; err != nil {
				return err // Return error to rollback
			}
			// Set the flag on the target
			if err := tx.Model(&domain.Addr{}).Where("id = ?", addr.ID).
				Update("is_default", true).Error; err != nil {
				return err // Return error to rollback
			}
			return nil // Commit transaction
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"addr_id": addr.ID,     // Target address
				"user_id": addr.UserID, // Owning user
				"error":   err.Error(), // Error message
			}).Error("Set default address failed") // Log failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "设置默认地址失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "设置成功"}) // Confirm the new default
	}
}
