package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/museume/museume-backend/model"
	stripegw "github.com/museume/museume-backend/services/stripe"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClassSignupService decides, for a (member, class) pair, whether payment is
// required and keeps local Payment/Signup rows consistent with the gateway.
type ClassSignupService struct {
	db         *gorm.DB
	gateway    stripegw.Gateway
	reconciler *PaymentReconciler
}

// NewClassSignupService creates a new class signup service
func NewClassSignupService(db *gorm.DB, gateway stripegw.Gateway) *ClassSignupService {
	return &ClassSignupService{
		db:         db,
		gateway:    gateway,
		reconciler: NewPaymentReconciler(db),
	}
}

// Reconciler exposes the shared transition logic for the webhook handler.
func (s *ClassSignupService) Reconciler() *PaymentReconciler {
	return s.reconciler
}

// SignupResult is what the signup endpoint returns to the client.
type SignupResult struct {
	FreeConfirmed   bool    `json:"-"`
	ClientSecret    string  `json:"payment_intent_client_secret,omitempty"`
	PaymentIntentID string  `json:"payment_intent_id,omitempty"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency,omitempty"`
}

// Signup runs the orchestration for one signup attempt.
//
// Free classes confirm immediately with a zero-amount succeeded payment and
// never touch the gateway. Paid classes reuse the most recent payment row:
// succeeded refuses with ErrAlreadyEnrolled, pending reconciles the live
// intent against the current price, anything else opens a fresh intent.
func (s *ClassSignupService) Signup(ctx context.Context, member *model.Member, classID uint) (*SignupResult, error) {
	var class model.ArtistClass
	if err := s.db.WithContext(ctx).First(&class, classID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}

	if class.IsFreeOfCharge() {
		if err := s.confirmFreeSignup(ctx, member.ID, &class); err != nil {
			return nil, err
		}
		return &SignupResult{FreeConfirmed: true, Amount: 0, Currency: class.Currency}, nil
	}

	var latest model.Payment
	err := s.db.WithContext(ctx).
		Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).
		Order("created_at DESC").
		First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err == nil {
		switch latest.Status {
		case model.PaymentSucceeded:
			return nil, ErrAlreadyEnrolled
		case model.PaymentPending:
			// Best-effort refresh; on gateway trouble the stale secret is
			// still returned so the client can retry payment.
			s.refreshPendingIntent(ctx, &class, &latest)
			return &SignupResult{
				ClientSecret:    latest.StripePaymentIntentSecret,
				PaymentIntentID: latest.StripePaymentIntentID,
				Amount:          *class.Cost,
				Currency:        class.Currency,
			}, nil
		}
		// A failed payment falls through: the member retries with a new intent.
	}

	return s.openNewIntent(ctx, member, &class)
}

// confirmFreeSignup records the zero-amount payment and confirms the signup
// in one transaction.
func (s *ClassSignupService) confirmFreeSignup(ctx context.Context, memberID uint, class *model.ArtistClass) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment := model.Payment{
			MemberID:      memberID,
			ArtistClassID: class.ID,
			Amount:        0,
			Currency:      class.Currency,
			Status:        model.PaymentSucceeded,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return upsertSignupConfirmed(tx, memberID, class.ID)
	})
}

// openNewIntent creates a gateway intent, a pending payment row and a
// pending signup (get-or-create, never overwritten).
func (s *ClassSignupService) openNewIntent(ctx context.Context, member *model.Member, class *model.ArtistClass) (*SignupResult, error) {
	intent, err := s.gateway.CreateIntent(ctx, s.intentParams(member.ID, class))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment := model.Payment{
			MemberID:                  member.ID,
			ArtistClassID:             class.ID,
			Amount:                    *class.Cost,
			Currency:                  class.Currency,
			StripePaymentIntentID:     intent.ID,
			StripePaymentIntentSecret: intent.ClientSecret,
			Status:                    model.PaymentPending,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		signup := model.MemberClassSignup{
			MemberID:      member.ID,
			ArtistClassID: class.ID,
			Status:        model.SignupPending,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}, {Name: "artist_class_id"}},
			DoNothing: true,
		}).Create(&signup).Error
	})
	if err != nil {
		return nil, err
	}

	return &SignupResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          *class.Cost,
		Currency:        class.Currency,
	}, nil
}

// refreshPendingIntent brings a pending intent in line with the class's
// current price. Currency changes cancel and recreate the intent (the
// gateway cannot re-currency an intent in place); amount-only changes modify
// it. Every failure here is logged and swallowed: the caller still answers
// with whatever secret is on file.
func (s *ClassSignupService) refreshPendingIntent(ctx context.Context, class *model.ArtistClass, payment *model.Payment) {
	intent, err := s.gateway.RetrieveIntent(ctx, payment.StripePaymentIntentID)
	if err != nil {
		log.Printf("[SIGNUP] failed to retrieve intent %s: %v", payment.StripePaymentIntentID, err)
		return
	}

	wantAmount := MinorUnitAmount(*class.Cost, class.Currency)
	currencyChanged := !strings.EqualFold(intent.Currency, class.Currency)
	amountChanged := intent.Amount != wantAmount

	switch {
	case currencyChanged:
		if err := s.gateway.CancelIntent(ctx, payment.StripePaymentIntentID); err != nil {
			log.Printf("[SIGNUP] failed to cancel intent %s: %v", payment.StripePaymentIntentID, err)
			return
		}
		fresh, err := s.gateway.CreateIntent(ctx, s.intentParams(payment.MemberID, class))
		if err != nil {
			log.Printf("[SIGNUP] failed to recreate intent after currency change: %v", err)
			return
		}
		updates := map[string]interface{}{
			"stripe_payment_intent_id":     fresh.ID,
			"stripe_payment_intent_secret": fresh.ClientSecret,
			"amount":                       *class.Cost,
			"currency":                     class.Currency,
		}
		if err := s.db.WithContext(ctx).Model(payment).Updates(updates).Error; err != nil {
			log.Printf("[SIGNUP] failed to persist refreshed intent %s: %v", fresh.ID, err)
			return
		}
		payment.StripePaymentIntentID = fresh.ID
		payment.StripePaymentIntentSecret = fresh.ClientSecret

	case amountChanged:
		if _, err := s.gateway.UpdateIntentAmount(ctx, payment.StripePaymentIntentID, wantAmount); err != nil {
			log.Printf("[SIGNUP] failed to update intent amount for %s: %v", payment.StripePaymentIntentID, err)
			return
		}
		if err := s.db.WithContext(ctx).Model(payment).Update("amount", *class.Cost).Error; err != nil {
			log.Printf("[SIGNUP] failed to persist amount change for intent %s: %v", payment.StripePaymentIntentID, err)
		}
	}
}

// ConfirmPayment is the client-triggered fallback for webhook delivery: the
// live intent status is re-checked with the gateway before anything is
// trusted, so a client cannot spoof confirmation.
func (s *ClassSignupService) ConfirmPayment(ctx context.Context, intentID string) (*model.Payment, error) {
	var payment model.Payment
	err := s.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", intentID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment with gateway: %w", err)
	}
	if !intent.Succeeded() {
		return nil, ErrPaymentNotSucceeded
	}

	return s.reconciler.ApplyIntentSucceeded(ctx, intentID)
}

func (s *ClassSignupService) intentParams(memberID uint, class *model.ArtistClass) stripegw.IntentParams {
	return stripegw.IntentParams{
		Amount:      MinorUnitAmount(*class.Cost, class.Currency),
		Currency:    class.Currency,
		Description: "Payment for artist class: " + class.Name,
		Metadata: map[string]string{
			"payment_type":      "artist_class",
			"artist_class_id":   strconv.FormatUint(uint64(class.ID), 10),
			"member_id":         strconv.FormatUint(uint64(memberID), 10),
			"artist_class_name": class.Name,
		},
	}
}
