package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Member roles
const (
	RoleParent = "parent"
	RoleChild  = "child"
	RoleAdmin  = "admin"
)

// ChildEmailSeparator marks generated child emails of the form
// parent@example.com#child_<ULID>. Children get a placeholder address under
// their parent's email until they register their own.
const ChildEmailSeparator = "#child_"

// Member represents a registered account. Child accounts are linked to a
// parent account and inherit the parent's email for notifications.
type Member struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	ULID         string         `gorm:"type:varchar(26);uniqueIndex;not null" json:"ulid"` // immutable public id
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'parent'" json:"role"` // parent, child, admin
	ParentID     *uint          `gorm:"index" json:"parent_id,omitempty"`
	DateOfBirth  *time.Time     `json:"date_of_birth,omitempty"`
	IsApproved   bool           `gorm:"default:false" json:"is_approved"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all tokens

	// Relationships
	Parent   *Member             `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Member            `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Payments []Payment           `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"-"`
	Signups  []MemberClassSignup `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"-"`
	Works    []Work              `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Member
func (Member) TableName() string {
	return "members"
}

// IsChild reports whether this member is a child account.
func (m *Member) IsChild() bool {
	return m.Role == RoleChild
}

// NotificationEmail returns the address notifications should be delivered to.
// Child accounts with a generated placeholder email resolve to the parent's
// address; everyone else receives mail at their own address.
func (m *Member) NotificationEmail() string {
	if IsChildEmail(m.Email) {
		return ParentEmailOf(m.Email)
	}
	return m.Email
}

// ChildEmail builds the placeholder email for a child account from the
// parent's email and the child's ULID. The suffix keeps the UNIQUE
// constraint satisfied without requiring a real inbox per child.
func ChildEmail(parentEmail, childULID string) string {
	return parentEmail + ChildEmailSeparator + childULID
}

// IsChildEmail reports whether an email is a generated child placeholder.
func IsChildEmail(email string) bool {
	return strings.Contains(email, ChildEmailSeparator)
}

// ParentEmailOf strips the child suffix, returning the parent's address.
// Non-placeholder emails are returned unchanged.
func ParentEmailOf(email string) string {
	if i := strings.Index(email, ChildEmailSeparator); i >= 0 {
		return email[:i]
	}
	return email
}
