package model

import (
	"time"

	"gorm.io/gorm"
)

// Signup statuses
const (
	SignupPending   = "pending"
	SignupConfirmed = "confirmed"
)

// MemberClassSignup represents a member's registration state for a class.
// At most one row exists per (member, class); it is upserted, never
// duplicated. A confirmed row is always backed by either a free class or a
// succeeded payment for the same pair.
type MemberClassSignup struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	MemberID      uint           `gorm:"not null;uniqueIndex:ux_signups_member_class" json:"member_id"`
	ArtistClassID uint           `gorm:"not null;uniqueIndex:ux_signups_member_class" json:"artist_class_id"`
	Status        string         `gorm:"type:varchar(20);default:'pending'" json:"status"` // pending, confirmed
	SignedUpAt    time.Time      `gorm:"autoCreateTime" json:"signed_up_at"`
	ReminderSent  bool           `gorm:"default:false" json:"reminder_sent"`
	Attended      bool           `gorm:"default:false" json:"attended"`

	// Relationships
	Member      Member      `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"member,omitempty"`
	ArtistClass ArtistClass `gorm:"foreignKey:ArtistClassID;constraint:OnDelete:CASCADE" json:"artist_class,omitempty"`
}

// TableName specifies the table name for MemberClassSignup
func (MemberClassSignup) TableName() string {
	return "member_class_signups"
}
