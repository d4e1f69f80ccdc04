package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library

	"user_system/internal/domain" // Importing domain models
)

const (
	accessTokenTTL  = 24 * time.Hour     // Access token lifetime
	refreshTokenTTL = 7 * 24 * time.Hour // Refresh token lifetime
)

// JWT Claims. The access token embeds the user's contact fields so the
// frontend can render the session without an extra profile call.
type Claims struct {
	UserID               uint   `json:"user_id"`  // Custom claim for user ID
	Username             string `json:"username"` // Username at issue time
	Mobile               string `json:"mobile"`   // Mobile at issue time
	Email                string `json:"email"`    // Email at issue time
	TokenType            string `json:"type"`     // "access" or "refresh"
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateTokenPair creates an access and a refresh token for a user
func GenerateTokenPair(user *domain.User, secret string) (access string, refresh string, err error) {
	access, err = signToken(user, "access", accessTokenTTL, secret)
	if err != nil {
		return "", "", err // Return error if signing fails
	}
	refresh, err = signToken(user, "refresh", refreshTokenTTL, secret)
	if err != nil {
		return "", "", err // Return error if signing fails
	}
	return access, refresh, nil
}

// GenerateAccessToken creates a fresh access token for a user
func GenerateAccessToken(user *domain.User, secret string) (string, error) {
	return signToken(user, "access", accessTokenTTL, secret)
}

// signToken builds and signs a token of the given type and lifetime
func signToken(user *domain.User, tokenType string, ttl time.Duration, secret string) (string, error) {
	claims := Claims{
		UserID:    user.ID,       // Custom claim for user ID
		Username:  user.Username, // Username claim
		Mobile:    user.Mobile,   // Mobile claim
		Email:     user.Email,    // Email claim
		TokenType: tokenType,     // Token kind
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)), // Expiry per token kind
			IssuedAt:  jwt.NewNumericDate(time.Now()),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	})
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}

// ParseRefreshToken parses a token and rejects anything but a refresh token
func ParseRefreshToken(tokenStr, secret string) (*Claims, error) {
	claims, err := ParseJWT(tokenStr, secret)
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	if claims.TokenType != "refresh" {
		return nil, jwt.ErrTokenInvalidClaims // Access tokens cannot be exchanged
	}
	return claims, nil
}
