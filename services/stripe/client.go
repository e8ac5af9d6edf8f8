package stripe

import (
	"context"
	"net/http"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// gatewayTimeout bounds every Stripe call; the API is a blocking network
// dependency in the middle of request handlers.
const gatewayTimeout = 10 * time.Second

// Intent is the slice of a Stripe PaymentIntent the booking flow cares about.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
}

// Succeeded reports whether the intent has been paid on the gateway side.
func (i *Intent) Succeeded() bool {
	return i.Status == string(stripego.PaymentIntentStatusSucceeded)
}

// IntentParams carries everything needed to open a payment intent.
// Metadata is attached verbatim for webhook traceability and support lookups.
type IntentParams struct {
	Amount      int64 // minor units
	Currency    string
	Description string
	Metadata    map[string]string
}

// Gateway abstracts the payment-intent operations the signup flow performs
// against Stripe. Tests substitute a fake; production uses Client.
type Gateway interface {
	CreateIntent(ctx context.Context, params IntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	UpdateIntentAmount(ctx context.Context, intentID string, amount int64) (*Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
}

// Client implements Gateway on top of the official Stripe SDK. The API key
// is bound at construction; nothing here touches the SDK's package-level key.
type Client struct {
	api *client.API
}

// NewClient builds a Stripe client with a bounded HTTP timeout.
func NewClient(secretKey string) *Client {
	backend := stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
		HTTPClient: &http.Client{Timeout: gatewayTimeout},
	})

	sc := &client.API{}
	sc.Init(secretKey, &stripego.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Client{api: sc}
}

// CreateIntent opens a new payment intent.
func (c *Client) CreateIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	params := &stripego.PaymentIntentParams{
		Amount:      stripego.Int64(p.Amount),
		Currency:    stripego.String(strings.ToLower(p.Currency)),
		Description: stripego.String(p.Description),
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}
	return fromPaymentIntent(pi), nil
}

// RetrieveIntent fetches the live state of an intent.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, err
	}
	return fromPaymentIntent(pi), nil
}

// UpdateIntentAmount changes the amount of an existing intent in place.
// Stripe allows this only within the same currency; currency changes require
// cancelling and recreating the intent.
func (c *Client) UpdateIntentAmount(ctx context.Context, intentID string, amount int64) (*Intent, error) {
	params := &stripego.PaymentIntentParams{
		Amount: stripego.Int64(amount),
	}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Update(intentID, params)
	if err != nil {
		return nil, err
	}
	return fromPaymentIntent(pi), nil
}

// CancelIntent cancels an intent that is no longer payable.
func (c *Client) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripego.PaymentIntentCancelParams{}
	params.Context = ctx

	_, err := c.api.PaymentIntents.Cancel(intentID, params)
	return err
}

func fromPaymentIntent(pi *stripego.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
}
