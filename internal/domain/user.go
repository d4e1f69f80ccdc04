package domain

import "time"

// User Model
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                                   // Primary key
	Username    string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"` // Unique username
	Email       string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`    // Unique email
	Mobile      string    `gorm:"type:varchar(11);index" json:"mobile"`                   // Mobile number; not unique, the login resolver rejects ambiguous matches
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`                    // Bcrypt hash, never serialized
	Avatar      string    `gorm:"type:varchar(255)" json:"avatar"`                        // Relative filename under the media root
	IsActive    bool      `gorm:"default:true" json:"is_active"`                          // Active flag
	IsSuperuser bool      `gorm:"default:false" json:"is_superuser"`                      // Administrator flag
	IsDelete    bool      `gorm:"default:false" json:"-"`                                 // Soft-delete marker; no route sets it yet
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`                       // Creation timestamp
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`                       // Update timestamp
	Addrs       []Addr    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"` // Shipping addresses, removed with the user
}

// TableName maps the model to the users table
func (User) TableName() string {
	return "users"
}
