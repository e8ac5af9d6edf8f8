package services

import (
	"context"
	"errors"
	"time"

	"github.com/museume/museume-backend/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentReconciler applies gateway-reported outcomes to local rows. The
// webhook handler and the synchronous confirmation path both funnel through
// it, so whichever arrives first does the work and the other is a no-op.
type PaymentReconciler struct {
	db *gorm.DB
}

// NewPaymentReconciler creates a new payment reconciler
func NewPaymentReconciler(db *gorm.DB) *PaymentReconciler {
	return &PaymentReconciler{db: db}
}

// ApplyIntentSucceeded marks the payment behind intentID succeeded and
// confirms the signup. The payment row is locked for the duration of the
// transaction and the status update is conditional, so concurrent webhook
// and confirmation calls cannot double-apply. Replays are inert.
//
// The returned payment has Member and ArtistClass preloaded for callers that
// need to notify someone.
func (r *PaymentReconciler) ApplyIntentSucceeded(ctx context.Context, intentID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("stripe_payment_intent_id = ?", intentID).
			Order("created_at DESC").
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		if payment.Status != model.PaymentSucceeded {
			if err := tx.Model(&model.Payment{}).
				Where("id = ? AND status <> ?", payment.ID, model.PaymentSucceeded).
				Update("status", model.PaymentSucceeded).Error; err != nil {
				return err
			}
			payment.Status = model.PaymentSucceeded
		}

		return upsertSignupConfirmed(tx, payment.MemberID, payment.ArtistClassID)
	})
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Preload("Member").Preload("Member.Parent").Preload("ArtistClass").
		First(&payment, payment.ID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ApplyIntentFailed marks a pending payment failed. The signup row is left
// untouched so the member can retry; a payment that already succeeded is
// never regressed.
func (r *PaymentReconciler) ApplyIntentFailed(ctx context.Context, intentID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", intentID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	result := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("id = ? AND status = ?", payment.ID, model.PaymentPending).
		Update("status", model.PaymentFailed)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		payment.Status = model.PaymentFailed
	}
	return &payment, nil
}

// upsertSignupConfirmed creates the signup row confirmed, or promotes an
// existing row. Safe to re-apply.
func upsertSignupConfirmed(tx *gorm.DB, memberID, classID uint) error {
	signup := model.MemberClassSignup{
		MemberID:      memberID,
		ArtistClassID: classID,
		Status:        model.SignupConfirmed,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "member_id"}, {Name: "artist_class_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     model.SignupConfirmed,
			"updated_at": time.Now(),
		}),
	}).Create(&signup).Error
}
