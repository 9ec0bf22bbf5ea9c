package users

import "time"

// User is an account identified by its ldap handle. Accounts are created
// lazily the first time a handle is seen and are never deleted by this core.
type User struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Ldap      string    `gorm:"column:ldap;size:190;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;size:190;not null"`
	Avatar    string    `gorm:"column:avatar;size:512"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}
