package domain

import (
	"time"
)

// ClickEvent is a single append-only entry in the detailed click log. All
// client attributes are best-effort and nullable; the authoritative metric is
// Link.ClickCount, which is maintained independently of this table.
type ClickEvent struct {
	ID         int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID     int64     `gorm:"column:link_id;not null;index" json:"link_id"`
	IPAddress  *string   `gorm:"column:ip_address;size:45" json:"ip_address,omitempty"`
	UserAgent  *string   `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Referer    *string   `gorm:"column:referer;size:500" json:"referer,omitempty"`
	Country    *string   `gorm:"column:country;size:2" json:"country,omitempty"` // ISO country code
	City       *string   `gorm:"column:city;size:100" json:"city,omitempty"`
	DeviceType *string   `gorm:"column:device_type;size:10" json:"device_type,omitempty"` // 'desktop', 'mobile', 'tablet', 'bot'
	Browser    *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS         *string   `gorm:"column:os;size:50" json:"os,omitempty"`
	OccurredAt time.Time `gorm:"column:occurred_at;autoCreateTime;index" json:"occurred_at"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}

// TableName returns the GORM table name.
func (ClickEvent) TableName() string {
	return "click_events"
}

// GetDeviceType returns the device type with an "unknown" fallback.
func (c *ClickEvent) GetDeviceType() string {
	if c.DeviceType != nil {
		return *c.DeviceType
	}
	return "unknown"
}
