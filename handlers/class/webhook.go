package class

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/services"
	"github.com/museume/museume-backend/utils/response"
	stripego "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeWebhook handles POST /api/v1/classes/webhook. The raw body is
// verified against the endpoint's signing secret before anything is trusted;
// a bad signature changes no state. Replays are inert because the underlying
// transitions are idempotent.
func (h *ClassHandler) StripeWebhook(c *fiber.Ctx) error {
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		return response.BadRequest(c, "Invalid signature")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return h.handleIntentSucceeded(c, event)
	case "payment_intent.payment_failed":
		return h.handleIntentFailed(c, event)
	default:
		// Unsubscribed event types are acknowledged so Stripe stops retrying
		return response.Success(c, fiber.Map{"received": true})
	}
}

func (h *ClassHandler) handleIntentSucceeded(c *fiber.Ctx, event stripego.Event) error {
	var intent stripego.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return response.BadRequest(c, "Malformed event payload")
	}

	payment, err := h.signupService.Reconciler().ApplyIntentSucceeded(c.Context(), intent.ID)
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			// Intents from other products or environments share the endpoint;
			// acknowledge and move on.
			log.Printf("[WEBHOOK] no payment on file for intent %s", intent.ID)
			return response.Success(c, fiber.Map{"received": true})
		}
		// The event is authenticated; only a bad signature earns a non-2xx.
		// Acknowledge and let the synchronous confirm path converge the state.
		log.Printf("[WEBHOOK] failed to apply succeeded intent %s: %v", intent.ID, err)
		return response.Success(c, fiber.Map{"received": true})
	}

	h.notifyClassAccess(payment)

	return response.Success(c, fiber.Map{"received": true})
}

func (h *ClassHandler) handleIntentFailed(c *fiber.Ctx, event stripego.Event) error {
	var intent stripego.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return response.BadRequest(c, "Malformed event payload")
	}

	if _, err := h.signupService.Reconciler().ApplyIntentFailed(c.Context(), intent.ID); err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			log.Printf("[WEBHOOK] no payment on file for failed intent %s", intent.ID)
			return response.Success(c, fiber.Map{"received": true})
		}
		log.Printf("[WEBHOOK] failed to apply failed intent %s: %v", intent.ID, err)
		return response.Success(c, fiber.Map{"received": true})
	}

	return response.Success(c, fiber.Map{"received": true})
}
