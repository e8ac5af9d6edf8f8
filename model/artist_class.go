package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Class delivery types
const (
	ClassTypeRealTime = "real_time"
	ClassTypeRecorded = "recorded"
)

// Schedule status values derived from the class time window
const (
	ClassStatusScheduled = "scheduled"
	ClassStatusOngoing   = "ongoing"
	ClassStatusCompleted = "completed"
	ClassStatusUnknown   = "unknown"
)

// ArtistClass represents a bookable class offering. Cost is meaningful only
// when IsFree is false; Currency is a 3-letter ISO code.
type ArtistClass struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"not null" json:"name"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	Tags        datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	Description string         `gorm:"type:text" json:"description"`
	IsFree      bool           `gorm:"default:false" json:"is_free"`
	Cost        *float64       `json:"cost"`
	Currency    string         `gorm:"type:varchar(3);default:'JPY'" json:"currency"`
	ClassType   string         `gorm:"type:varchar(20);default:'recorded'" json:"class_type"` // real_time, recorded
	Thumbnail   string         `gorm:"type:varchar(512)" json:"thumbnail"`
	URL         string         `gorm:"type:varchar(512)" json:"url,omitempty"` // access link, gated by signup status
	StartDate   *time.Time     `json:"start_date"`
	EndDate     *time.Time     `json:"end_date"`

	// Relationships
	Payments []Payment           `gorm:"foreignKey:ArtistClassID;constraint:OnDelete:CASCADE" json:"-"`
	Signups  []MemberClassSignup `gorm:"foreignKey:ArtistClassID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for ArtistClass
func (ArtistClass) TableName() string {
	return "artist_classes"
}

// IsFreeOfCharge reports whether signup requires no payment: either the free
// flag is set or the cost is absent/zero.
func (c *ArtistClass) IsFreeOfCharge() bool {
	return c.IsFree || c.Cost == nil || *c.Cost == 0
}

// ScheduleStatus returns the class's standing relative to its time window.
func (c *ArtistClass) ScheduleStatus(now time.Time) string {
	if c.StartDate == nil || c.EndDate == nil {
		return ClassStatusUnknown
	}
	switch {
	case c.StartDate.After(now):
		return ClassStatusScheduled
	case !c.EndDate.Before(now):
		return ClassStatusOngoing
	default:
		return ClassStatusCompleted
	}
}
