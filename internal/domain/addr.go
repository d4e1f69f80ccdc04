package domain

// Addr Model (shipping address)
type Addr struct {
	ID        uint   `gorm:"primaryKey" json:"id"`                      // Primary key
	UserID    uint   `gorm:"index;not null" json:"user_id"`             // Owning user
	Name      string `gorm:"type:varchar(20);not null" json:"name"`     // Recipient name
	Phone     string `gorm:"type:varchar(11);not null" json:"phone"`    // Recipient phone
	Province  string `gorm:"type:varchar(20);not null" json:"province"` // Province
	City      string `gorm:"type:varchar(20);not null" json:"city"`     // City
	County    string `gorm:"type:varchar(20);not null" json:"county"`   // County
	IsDefault bool   `gorm:"default:false" json:"is_default"`           // At most one default per user
}

// TableName maps the model to the addr table
func (Addr) TableName() string {
	return "addr"
}
