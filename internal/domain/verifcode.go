package domain

import "time"

// VerifCode Model. Mobile verification codes; the table is migrated
// but no exposed route consumes it in this snapshot.
type VerifCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`               // Primary key
	Mobile    string    `gorm:"type:varchar(11)" json:"mobile"`     // Target mobile number
	Code      string    `gorm:"type:varchar(6)" json:"code"`        // Numeric code
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_time"` // Generation time
}

// TableName maps the model to the verifcode table
func (VerifCode) TableName() string {
	return "verifcode"
}
