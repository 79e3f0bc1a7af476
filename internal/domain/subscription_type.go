package domain

import "time"

// SubscriptionType describes a plan tier. The resolution core only consults
// CustomSlugs, which is the authorization collaborator's "may use custom slug"
// decision; the remaining limits exist for the account surface.
type SubscriptionType struct {
	ID               int16     `gorm:"primaryKey;column:id" json:"id"`
	Name             string    `gorm:"column:name;size:20;uniqueIndex;not null" json:"name"`
	DisplayName      string    `gorm:"column:display_name;size:50;not null" json:"display_name"`
	MaxLinksPerMonth *int      `gorm:"column:max_links_per_month" json:"max_links_per_month,omitempty"` // NULL = unlimited
	CustomSlugs      bool      `gorm:"column:custom_slugs;not null;default:false" json:"custom_slugs"`
	APIAccess        bool      `gorm:"column:api_access;not null;default:false" json:"api_access"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`

	// Relationships
	Users []User `gorm:"foreignKey:SubscriptionTypeID" json:"users,omitempty"`
}

// TableName returns the GORM table name.
func (SubscriptionType) TableName() string {
	return "subscription_types"
}

// IsUnlimited reports whether the plan has no monthly link cap.
func (st *SubscriptionType) IsUnlimited() bool {
	return st.MaxLinksPerMonth == nil
}
