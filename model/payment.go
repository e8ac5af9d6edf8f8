package model

import (
	"time"

	"gorm.io/gorm"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Payment records one Stripe transaction attempt for a (member, class) pair.
// Rows are never deleted; retries and currency changes produce updates, and
// the most recent row by created_at is authoritative for the pair.
type Payment struct {
	ID                        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt                 time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt                 time.Time      `json:"updated_at"`
	DeletedAt                 gorm.DeletedAt `gorm:"index" json:"-"`
	MemberID                  uint           `gorm:"not null;index:idx_payments_member_class" json:"member_id"`
	ArtistClassID             uint           `gorm:"not null;index:idx_payments_member_class" json:"artist_class_id"`
	Amount                    float64        `gorm:"not null" json:"amount"`
	Currency                  string         `gorm:"type:varchar(3);default:'JPY'" json:"currency"`
	StripePaymentIntentID     string         `gorm:"type:varchar(100);index" json:"stripe_payment_intent_id"`
	StripePaymentIntentSecret string         `gorm:"type:varchar(200)" json:"-"`
	Status                    string         `gorm:"type:varchar(20);default:'pending'" json:"status"` // pending, succeeded, failed

	// Relationships
	Member      Member      `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"member,omitempty"`
	ArtistClass ArtistClass `gorm:"foreignKey:ArtistClassID;constraint:OnDelete:CASCADE" json:"artist_class,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}
