package domain

import "time"

// User is a registered principal. Anonymous creations carry no user at all, so
// everything here is owned by the authentication collaborator rather than the
// resolution core.
type User struct {
	ID                 int64      `gorm:"primaryKey;column:id" json:"id"`
	Email              string     `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string     `gorm:"column:password_hash;not null" json:"-"`
	SubscriptionTypeID int16      `gorm:"column:subscription_type_id;default:1" json:"subscription_type_id"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	IsActive           bool       `gorm:"column:is_active;default:true" json:"is_active"`

	// Relationships
	SubscriptionType *SubscriptionType `gorm:"foreignKey:SubscriptionTypeID" json:"subscription_type,omitempty"`
	Links            []Link            `gorm:"foreignKey:UserID" json:"links,omitempty"`
}

// TableName returns the GORM table name.
func (User) TableName() string {
	return "users"
}
