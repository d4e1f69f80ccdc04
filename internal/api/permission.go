package api

import (
	"user_system/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// ownsOrAdmin is the single authorization policy for owned resources:
// the requester must be the owner, or hold the superuser flag. The flag
// is re-read from the store rather than trusted from the token.
func ownsOrAdmin(db *gorm.DB, requesterID, ownerID uint) bool {
	if requesterID == ownerID {
		return true // Owners always pass
	}
	var user domain.User // Fetch the requester
	if err := db.First(&user, requesterID).Error; err != nil {
		return false // Unknown requester never passes
	}
	return user.IsSuperuser
}
