package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Work upload limits per member. Members with at least one succeeded class
// payment get the paid limit.
const (
	WorkLimitFree = 20
	WorkLimitPaid = 100
)

// Work represents an artwork shared by a member. Works default to private
// and require admin approval before appearing in the public gallery.
type Work struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	MemberID    uint           `gorm:"not null;index" json:"member_id"`
	Title       string         `gorm:"type:varchar(255)" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	Tags        datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	Price       *float64       `json:"price,omitempty"`
	IsPublic    bool           `gorm:"default:false" json:"is_public"`
	IsApproved  bool           `gorm:"default:false" json:"is_approved"`

	// Relationships
	Member Member      `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"member,omitempty"`
	Images []WorkImage `gorm:"foreignKey:WorkID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Likes  []Like      `gorm:"foreignKey:WorkID;constraint:OnDelete:CASCADE" json:"likes,omitempty"`
}

// TableName specifies the table name for Work
func (Work) TableName() string {
	return "works"
}

// WorkImage is a stored image belonging to a work. Hash is the SHA-256 of
// the image content and enforces content uniqueness across the system.
type WorkImage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	WorkID    uint           `gorm:"not null;index" json:"work_id"`
	URL       string         `gorm:"type:varchar(512);not null" json:"url"`
	Hash      string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
}

// TableName specifies the table name for WorkImage
func (WorkImage) TableName() string {
	return "work_images"
}

// Like marks that a member liked a work. Unique per (member, work).
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MemberID  uint      `gorm:"not null;uniqueIndex:ux_likes_member_work" json:"member_id"`
	WorkID    uint      `gorm:"not null;uniqueIndex:ux_likes_member_work" json:"work_id"`
	LikedAt   time.Time `gorm:"autoCreateTime" json:"liked_at"`

	// Relationships
	Member Member `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"-"`
	Work   Work   `gorm:"foreignKey:WorkID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Like
func (Like) TableName() string {
	return "likes"
}
