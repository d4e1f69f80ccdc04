package api

import (
	"errors"                      // Sentinel errors
	"net/http"                    // HTTP status codes
	"regexp"                      // Regular expressions
	"user_system/internal/domain" // Importing domain models
	"user_system/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// Login resolution errors. The reference behavior distinguishes the two
// cases, so callers surface them verbatim.
var (
	ErrUserNotFound  = errors.New("未找到该用户")
	ErrWrongPassword = errors.New("密码错误")
)

// emailPattern requires an alphanumeric-leading local part and one or two
// dot-separated TLD segments of 2-5 letters
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9][\w.\-]*@[a-zA-Z0-9\-]+(\.[a-zA-Z]{2,5}){1,2}$`)

// Request struct for registration
type RegisterRequest struct {
	Username             string `json:"username"`              // Desired username
	Email                string `json:"email"`                 // Contact email
	Password             string `json:"password"`              // Password
	PasswordConfirmation string `json:"password_confirmation"` // Password repeated
}

// Request struct for login; username accepts a username, mobile or email
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Login identifier
	Password string `json:"password" binding:"required"` // Password
}

// ResolveUser locates the unique user whose username, mobile or email
// equals identifier and verifies the password against the stored hash.
// Zero or multiple matches resolve to ErrUserNotFound: mobile collisions
// in pre-index data must never log in an arbitrary row.
func ResolveUser(db *gorm.DB, identifier, password string) (*domain.User, error) {
	var users []domain.User
	// Limit(2) is enough to detect an ambiguous match
	err := db.Where("username = ? OR mobile = ? OR email = ?", identifier, identifier, identifier).
		Limit(2).
		Find(&users).Error
	if err != nil {
		return nil, err // Propagate store errors
	}
	if len(users) != 1 {
		return nil, ErrUserNotFound // Absent or ambiguous identifier
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}
	return &users[0], nil
}

// RegisterHandler creates a new user account. Checks run in a fixed
// order and the first failure wins; the store's unique constraints are
// the real guard against concurrent duplicates, the pre-checks only give
// the fast rejection.
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, treat it as a validation failure
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "无效的请求数据"})
			return
		}
		// 1. All fields must be present
		if req.Username == "" || req.Email == "" || req.Password == "" || req.PasswordConfirmation == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "所有字段均为必填项"})
			return
		}
		// 2. Username must not be taken
		var count int64
		if err := db.Model(&domain.User{}).Where("username = ?", req.Username).Count(&count).Error; err == nil && count > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "用户名已存在"})
			return
		}
		// 3. Both password fields must agree
		if req.Password != req.PasswordConfirmation {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "两次密码输入不一致"})
			return
		}
		// 4. Password length between 6 and 18
		if len(req.Password) < 6 || len(req.Password) > 18 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "密码长度需要在6-18位之间"})
			return
		}
		// 5. Email must not be taken
		if err := db.Model(&domain.User{}).Where("email = ?", req.Email).Count(&count).Error; err == nil && count > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "该邮箱已被注册"})
			return
		}
		// 6. Email must be well formed
		if !emailPattern.MatchString(req.Email) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "邮箱格式不正确"})
			return
		}
		// Hash the password before storage
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "密码加密失败"})
			return
		}
		user := domain.User{
			Username: req.Username, // Desired username
			Email:    req.Email,    // Contact email
			Password: string(hash), // Irreversible hash only
			IsActive: true,         // Active on creation
		}
		// Attempt to create the user; a concurrent registration may slip
		// past the pre-checks, so map constraint violations back to the
		// same duplicate errors
		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Re-probe to decide which field collided
				var taken int64
				db.Model(&domain.User{}).Where("username = ?", req.Username).Count(&taken)
				if taken > 0 {
					c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "用户名已存在"})
				} else {
					c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "该邮箱已被注册"})
				}
				return
			}
			logrus.WithFields(logrus.Fields{
				"username": req.Username, // Attempted username
				"error":    err.Error(),  // Error message
			}).Error("User registration failed") // Log registration failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "注册失败"})
			return
		}
		// Return the created account summary; no session is issued here
		c.JSON(http.StatusCreated, gin.H{
			"id":       user.ID,       // New user ID
			"username": user.Username, // Username
			"email":    user.Email,    // Email
		})
	}
}

// LoginHandler authenticates by username, mobile or email and returns a
// token pair plus the account's contact fields
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, treat it as a validation failure
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "无效的请求数据"})
			return
		}
		user, err := ResolveUser(db, req.Username, req.Password) // Resolve the identifier
		if err != nil {
			if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrWrongPassword) {
				// Surface the resolution failure on the validation channel
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			logrus.WithFields(logrus.Fields{
				"identifier": req.Username, // Login identifier, never the password
				"error":      err.Error(),  // Error message
			}).Error("Login lookup failed") // Log store failure
			c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败"})
			return
		}
		// Mint the access and refresh tokens
		access, refresh, err := utils.GenerateTokenPair(user, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "生成token失败"})
			return
		}
		// Return the session payload with the account's contact fields
		c.JSON(http.StatusOK, gin.H{
			"token":    access,        // Access token
			"refresh":  refresh,       // Refresh token
			"id":       user.ID,       // User ID
			"username": user.Username, // Username
			"mobile":   user.Mobile,   // Mobile
			"email":    user.Email,    // Email
		})
	}
}

// Request struct for token refresh
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"` // Refresh token
}

// RefreshTokenHandler exchanges a valid refresh token for a new access token
func RefreshTokenHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "无效的请求数据"})
			return
		}
		claims, err := utils.ParseRefreshToken(req.Refresh, jwtSecret) // Validate the refresh token
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token无效或已过期"})
			return
		}
		var user domain.User // The account must still exist
		if err := db.First(&user, claims.UserID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ErrUserNotFound.Error()})
			return
		}
		token, err := utils.GenerateAccessToken(&user, jwtSecret) // Mint a fresh access token
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "生成token失败"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token}) // Return the new access token
	}
}

// Request struct for token verification
type VerifyRequest struct {
	Token string `json:"token" binding:"required"` // Token to verify
}

// VerifyTokenHandler reports whether a token is currently valid
func VerifyTokenHandler(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "无效的请求数据"})
			return
		}
		// Any parse failure means the token is not acceptable
		if _, err := utils.ParseJWT(req.Token, jwtSecret); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token无效或已过期"})
			return
		}
		c.JSON(http.StatusOK, gin.H{}) // Valid token
	}
}
