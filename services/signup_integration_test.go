package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/museume/museume-backend/model"
	stripegw "github.com/museume/museume-backend/services/stripe"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeGateway is an in-memory stand-in for the Stripe client. Tests script
// its responses and inspect its call counters.
type fakeGateway struct {
	mu            sync.Mutex
	intents       map[string]*stripegw.Intent
	nextID        int
	createCalls   int
	retrieveCalls int
	updateCalls   int
	cancelCalls   int
	createErr     error
	retrieveErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*stripegw.Intent)}
}

func (g *fakeGateway) CreateIntent(_ context.Context, p stripegw.IntentParams) (*stripegw.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextID++
	intent := &stripegw.Intent{
		ID:           fmt.Sprintf("pi_fake_%d", g.nextID),
		ClientSecret: fmt.Sprintf("pi_fake_%d_secret", g.nextID),
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       "requires_payment_method",
	}
	g.intents[intent.ID] = intent
	copy := *intent
	return &copy, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, intentID string) (*stripegw.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retrieveCalls++
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, errors.New("no such intent")
	}
	copy := *intent
	return &copy, nil
}

func (g *fakeGateway) UpdateIntentAmount(_ context.Context, intentID string, amount int64) (*stripegw.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, errors.New("no such intent")
	}
	intent.Amount = amount
	copy := *intent
	return &copy, nil
}

func (g *fakeGateway) CancelIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelCalls++
	intent, ok := g.intents[intentID]
	if !ok {
		return errors.New("no such intent")
	}
	intent.Status = "canceled"
	return nil
}

func (g *fakeGateway) markSucceeded(intentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[intentID]; ok {
		intent.Status = "succeeded"
	}
}

// setupTestDB connects to the integration database. Set
// RUN_INTEGRATION_TESTS=true and TEST_DATABASE_DSN to run these tests.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run")
	}

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&model.Member{}, &model.ArtistClass{}, &model.Payment{}, &model.MemberClassSignup{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func createTestMember(t *testing.T, db *gorm.DB) *model.Member {
	t.Helper()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	member := model.Member{
		ULID:         fmt.Sprintf("TEST%022d", time.Now().UnixNano()),
		Username:     "member_" + suffix,
		Email:        fmt.Sprintf("member_%s@example.com", suffix),
		PasswordHash: "x",
		Name:         "Test Member",
		Role:         model.RoleChild,
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to create member: %v", err)
	}
	return &member
}

func createTestClass(t *testing.T, db *gorm.DB, cost *float64, currency string, free bool) *model.ArtistClass {
	t.Helper()
	class := model.ArtistClass{
		Name:      fmt.Sprintf("Test Class %d", time.Now().UnixNano()),
		IsFree:    free,
		Cost:      cost,
		Currency:  currency,
		ClassType: model.ClassTypeRealTime,
	}
	if err := db.Create(&class).Error; err != nil {
		t.Fatalf("failed to create class: %v", err)
	}
	return &class
}

func TestSignupFreeClassConfirmsImmediately(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	class := createTestClass(t, db, nil, "JPY", true)

	result, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if !result.FreeConfirmed {
		t.Error("expected FreeConfirmed")
	}
	if gateway.createCalls != 0 {
		t.Errorf("free signup touched the gateway: %d create calls", gateway.createCalls)
	}

	var payment model.Payment
	if err := db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).First(&payment).Error; err != nil {
		t.Fatalf("payment row missing: %v", err)
	}
	if payment.Status != model.PaymentSucceeded || payment.Amount != 0 {
		t.Errorf("payment = {status %q amount %v}, want succeeded / 0", payment.Status, payment.Amount)
	}

	var signup model.MemberClassSignup
	if err := db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).First(&signup).Error; err != nil {
		t.Fatalf("signup row missing: %v", err)
	}
	if signup.Status != model.SignupConfirmed {
		t.Errorf("signup status = %q, want confirmed", signup.Status)
	}
}

func TestSignupUnknownClass(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClassSignupService(db, newFakeGateway())
	member := createTestMember(t, db)

	_, err := svc.Signup(context.Background(), member, 999999999)
	if !errors.Is(err, ErrClassNotFound) {
		t.Errorf("err = %v, want ErrClassNotFound", err)
	}
}

func TestSignupPaidClassOpensIntentOnce(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 9.99
	class := createTestClass(t, db, &cost, "USD", false)

	first, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("first Signup: %v", err)
	}
	if first.ClientSecret == "" || first.PaymentIntentID == "" {
		t.Fatal("expected intent id and client secret")
	}
	if gateway.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", gateway.createCalls)
	}

	intent := gateway.intents[first.PaymentIntentID]
	if intent.Amount != 999 {
		t.Errorf("intent amount = %d, want 999 minor units", intent.Amount)
	}

	// A retry while pending reuses the intent instead of opening another
	second, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("second Signup: %v", err)
	}
	if second.PaymentIntentID != first.PaymentIntentID {
		t.Errorf("retry opened a new intent: %s vs %s", second.PaymentIntentID, first.PaymentIntentID)
	}
	if gateway.createCalls != 1 {
		t.Errorf("createCalls after retry = %d, want 1", gateway.createCalls)
	}

	var signup model.MemberClassSignup
	if err := db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).First(&signup).Error; err != nil {
		t.Fatalf("signup row missing: %v", err)
	}
	if signup.Status != model.SignupPending {
		t.Errorf("signup status = %q, want pending", signup.Status)
	}
}

func TestSignupAlreadyEnrolled(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 25.0
	class := createTestClass(t, db, &cost, "USD", false)

	result, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	gateway.markSucceeded(result.PaymentIntentID)
	if _, err := svc.ConfirmPayment(context.Background(), result.PaymentIntentID); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}

	_, err = svc.Signup(context.Background(), member, class.ID)
	if !errors.Is(err, ErrAlreadyEnrolled) {
		t.Errorf("err = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestSignupAmountChangeUpdatesIntentInPlace(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 10.0
	class := createTestClass(t, db, &cost, "USD", false)

	first, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("first Signup: %v", err)
	}

	// Price changes while the payment is still pending
	newCost := 15.0
	if err := db.Model(&model.ArtistClass{}).Where("id = ?", class.ID).Update("cost", newCost).Error; err != nil {
		t.Fatalf("failed to update cost: %v", err)
	}

	second, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("second Signup: %v", err)
	}
	if second.PaymentIntentID != first.PaymentIntentID {
		t.Errorf("amount change replaced the intent: %s vs %s", second.PaymentIntentID, first.PaymentIntentID)
	}
	if gateway.updateCalls != 1 {
		t.Errorf("updateCalls = %d, want 1", gateway.updateCalls)
	}
	if gateway.cancelCalls != 0 {
		t.Errorf("cancelCalls = %d, want 0", gateway.cancelCalls)
	}
	if got := gateway.intents[first.PaymentIntentID].Amount; got != 1500 {
		t.Errorf("intent amount = %d, want 1500", got)
	}

	var payment model.Payment
	if err := db.Where("stripe_payment_intent_id = ?", first.PaymentIntentID).First(&payment).Error; err != nil {
		t.Fatalf("payment row missing: %v", err)
	}
	if payment.Amount != newCost {
		t.Errorf("persisted amount = %v, want %v", payment.Amount, newCost)
	}
}

func TestSignupCurrencyChangeRecreatesIntent(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 10.0
	class := createTestClass(t, db, &cost, "USD", false)

	first, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("first Signup: %v", err)
	}

	updates := map[string]interface{}{"cost": 1500.0, "currency": "JPY"}
	if err := db.Model(&model.ArtistClass{}).Where("id = ?", class.ID).Updates(updates).Error; err != nil {
		t.Fatalf("failed to update class: %v", err)
	}

	second, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("second Signup: %v", err)
	}
	if second.PaymentIntentID == first.PaymentIntentID {
		t.Error("currency change kept the old intent")
	}
	if gateway.cancelCalls != 1 {
		t.Errorf("cancelCalls = %d, want 1", gateway.cancelCalls)
	}

	// The same payment row carries the new intent; no extra row appears
	var count int64
	db.Model(&model.Payment{}).Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).Count(&count)
	if count != 1 {
		t.Errorf("payment rows = %d, want 1", count)
	}

	var payment model.Payment
	if err := db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).First(&payment).Error; err != nil {
		t.Fatalf("payment row missing: %v", err)
	}
	if payment.StripePaymentIntentID != second.PaymentIntentID {
		t.Errorf("persisted intent id = %s, want %s", payment.StripePaymentIntentID, second.PaymentIntentID)
	}
	if payment.Currency != "JPY" {
		t.Errorf("persisted currency = %s, want JPY", payment.Currency)
	}
}

func TestSignupRefreshFailureReturnsStaleSecret(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 10.0
	class := createTestClass(t, db, &cost, "USD", false)

	first, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("first Signup: %v", err)
	}

	// Gateway goes down; the retry still answers with the stored secret
	gateway.retrieveErr = errors.New("gateway unavailable")

	second, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("Signup during outage: %v", err)
	}
	if second.ClientSecret != first.ClientSecret {
		t.Errorf("secret = %q, want stale %q", second.ClientSecret, first.ClientSecret)
	}
}

func TestReconcilerIdempotentAcrossPaths(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 20.0
	class := createTestClass(t, db, &cost, "USD", false)

	result, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	gateway.markSucceeded(result.PaymentIntentID)

	// Webhook-style transition, applied twice (replay)
	if _, err := svc.Reconciler().ApplyIntentSucceeded(context.Background(), result.PaymentIntentID); err != nil {
		t.Fatalf("first ApplyIntentSucceeded: %v", err)
	}
	if _, err := svc.Reconciler().ApplyIntentSucceeded(context.Background(), result.PaymentIntentID); err != nil {
		t.Fatalf("replayed ApplyIntentSucceeded: %v", err)
	}

	// Synchronous confirmation after the webhook is a no-op as well
	payment, err := svc.ConfirmPayment(context.Background(), result.PaymentIntentID)
	if err != nil {
		t.Fatalf("ConfirmPayment after webhook: %v", err)
	}
	if payment.Status != model.PaymentSucceeded {
		t.Errorf("payment status = %q, want succeeded", payment.Status)
	}

	var signups int64
	db.Model(&model.MemberClassSignup{}).Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).Count(&signups)
	if signups != 1 {
		t.Errorf("signup rows = %d, want 1", signups)
	}
}

func TestConfirmPaymentRejectsUnpaidIntent(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 20.0
	class := createTestClass(t, db, &cost, "USD", false)

	result, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	// The live intent is still unpaid; confirmation must not be trusted
	_, err = svc.ConfirmPayment(context.Background(), result.PaymentIntentID)
	if !errors.Is(err, ErrPaymentNotSucceeded) {
		t.Errorf("err = %v, want ErrPaymentNotSucceeded", err)
	}

	_, err = svc.ConfirmPayment(context.Background(), "pi_never_seen")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("err = %v, want ErrPaymentNotFound", err)
	}
}

func TestApplyIntentFailedNeverRegressesSucceeded(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 20.0
	class := createTestClass(t, db, &cost, "USD", false)

	result, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	gateway.markSucceeded(result.PaymentIntentID)

	if _, err := svc.Reconciler().ApplyIntentSucceeded(context.Background(), result.PaymentIntentID); err != nil {
		t.Fatalf("ApplyIntentSucceeded: %v", err)
	}

	// A stale failure event arriving afterwards must not downgrade
	payment, err := svc.Reconciler().ApplyIntentFailed(context.Background(), result.PaymentIntentID)
	if err != nil {
		t.Fatalf("ApplyIntentFailed: %v", err)
	}
	if payment.Status != model.PaymentSucceeded {
		t.Errorf("payment status = %q, want succeeded", payment.Status)
	}

	var signup model.MemberClassSignup
	if err := db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).First(&signup).Error; err != nil {
		t.Fatalf("signup row missing: %v", err)
	}
	if signup.Status != model.SignupConfirmed {
		t.Errorf("signup status = %q, want confirmed", signup.Status)
	}
}

func TestApplyIntentFailedMarksPendingFailed(t *testing.T) {
	db := setupTestDB(t)
	gateway := newFakeGateway()
	svc := NewClassSignupService(db, gateway)

	member := createTestMember(t, db)
	cost := 20.0
	class := createTestClass(t, db, &cost, "USD", false)

	result, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	payment, err := svc.Reconciler().ApplyIntentFailed(context.Background(), result.PaymentIntentID)
	if err != nil {
		t.Fatalf("ApplyIntentFailed: %v", err)
	}
	if payment.Status != model.PaymentFailed {
		t.Errorf("payment status = %q, want failed", payment.Status)
	}

	// Signup stays pending so the member can retry
	var signup model.MemberClassSignup
	if err := db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).First(&signup).Error; err != nil {
		t.Fatalf("signup row missing: %v", err)
	}
	if signup.Status != model.SignupPending {
		t.Errorf("signup status = %q, want pending", signup.Status)
	}

	// The next signup attempt opens a fresh intent
	before := gateway.createCalls
	retry, err := svc.Signup(context.Background(), member, class.ID)
	if err != nil {
		t.Fatalf("retry Signup: %v", err)
	}
	if gateway.createCalls != before+1 {
		t.Errorf("createCalls = %d, want %d", gateway.createCalls, before+1)
	}
	if retry.PaymentIntentID == result.PaymentIntentID {
		t.Error("retry reused the failed intent")
	}

	var count int64
	db.Model(&model.Payment{}).Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).Count(&count)
	if count != 2 {
		t.Errorf("payment rows = %d, want 2 (failed + fresh)", count)
	}
}
