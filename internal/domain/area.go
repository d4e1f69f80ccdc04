package domain

// Area Model. Province/city/county region tree; rows reference their
// parent region through Pid. The table is migrated but no exposed
// route consumes it in this snapshot.
type Area struct {
	ID    uint   `gorm:"primaryKey" json:"id"`          // Primary key
	Pid   uint   `gorm:"index" json:"pid"`              // Parent region ID, zero for provinces
	Name  string `gorm:"type:varchar(20)" json:"name"`  // Region name
	Level string `gorm:"type:varchar(20)" json:"level"` // Region level
}

// TableName maps the model to the area table
func (Area) TableName() string {
	return "area"
}
