package class

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/services"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupWebhookDB connects to the integration database. Set
// RUN_INTEGRATION_TESTS=true and TEST_DATABASE_DSN to run these tests.
func setupWebhookDB(t *testing.T) *gorm.DB {
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

func newDBWebhookApp(db *gorm.DB) *fiber.App {
	svc := services.NewClassSignupService(db, nil)
	handler := NewClassHandler(db, svc, nil, nil, testWebhookSecret)
	app := fiber.New()
	app.Post("/api/v1/classes/webhook", handler.StripeWebhook)
	return app
}

func TestStripeWebhookAcknowledgesUnknownIntent(t *testing.T) {
	db := setupWebhookDB(t)
	app := newDBWebhookApp(db)

	// The endpoint is shared with other products and environments; an intent
	// with no payment on file is acknowledged, not rejected.
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_10","type":"payment_intent.succeeded","data":{"object":{"id":"pi_unknown_%d"}}}`,
		time.Now().UnixNano()))

	resp, err := app.Test(signedRequest(payload))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestStripeWebhookAcknowledgesProcessingFailure(t *testing.T) {
	db := setupWebhookDB(t)
	app := newDBWebhookApp(db)

	// Sever the connection so applying the transition fails with a generic
	// storage error. An authenticated event still gets a 2xx; only a bad
	// signature is rejected.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("failed to close connection: %v", err)
	}

	for _, eventType := range []string{"payment_intent.succeeded", "payment_intent.payment_failed"} {
		payload := []byte(fmt.Sprintf(
			`{"id":"evt_11","type":"%s","data":{"object":{"id":"pi_db_down"}}}`, eventType))

		resp, err := app.Test(signedRequest(payload))
		if err != nil {
			t.Fatalf("%s: app.Test: %v", eventType, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", eventType, resp.StatusCode, http.StatusOK)
		}
	}
}
