package domain

import (
	"time"

	"gorm.io/gorm"
)

// Link represents a single short link record. Exactly one of SystemCode and
// CustomSlug is set, but both columns share one uniqueness namespace (see the
// expression index created in internal/database).
type Link struct {
	ID           int64          `gorm:"primaryKey;column:id" json:"id"`
	UserID       *int64         `gorm:"column:user_id;index" json:"user_id,omitempty"` // nil for anonymous creations
	OriginalURL  string         `gorm:"column:original_url;type:text;not null" json:"original_url"`
	Title        *string        `gorm:"column:title;size:200" json:"title,omitempty"`
	SystemCode   *string        `gorm:"column:system_code;size:16;uniqueIndex" json:"system_code,omitempty"`
	CustomSlug   *string        `gorm:"column:custom_slug;size:64;uniqueIndex" json:"custom_slug,omitempty"`
	ClickCount   int64          `gorm:"column:click_count;not null;default:0" json:"click_count"`
	VerifiedSafe bool           `gorm:"column:verified_safe;not null;default:false" json:"verified_safe"`
	QRAssetRef   *string        `gorm:"column:qr_asset_ref;size:500" json:"qr_asset_ref,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	// Relationships
	User        *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ClickEvents []ClickEvent `gorm:"foreignKey:LinkID" json:"click_events,omitempty"`
}

// TableName returns the GORM table name.
func (Link) TableName() string {
	return "links"
}

// Code returns the record's active resolvable code. This is the single place
// that decides which of the two columns wins; lookup and display paths must
// both go through it.
func (l *Link) Code() Code {
	if l.CustomSlug != nil {
		return CustomCode(*l.CustomSlug)
	}
	if l.SystemCode != nil {
		return SystemCode(*l.SystemCode)
	}
	return Code{}
}

// SetCode stores a tagged code into the matching column.
func (l *Link) SetCode(code Code) {
	switch code.Origin {
	case CodeOriginCustom:
		l.CustomSlug = &code.Value
		l.SystemCode = nil
	default:
		l.SystemCode = &code.Value
		l.CustomSlug = nil
	}
}
