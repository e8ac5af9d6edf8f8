package class

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/services"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
	"gorm.io/gorm"
)

// SignupRequest represents the request body for signing up to a class
type SignupRequest struct {
	ArtistClassID uint `json:"artist_class_id" validate:"required,min=1"`
}

// ConfirmPaymentRequest represents the synchronous confirmation request
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// Signup handles POST /api/v1/classes/signup. Free classes confirm
// immediately with 201; paid classes answer 200 with the intent client
// secret the member completes payment against.
func (h *ClassHandler) Signup(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.ArtistClassID == 0 {
		return response.BadRequest(c, "artist_class_id is required")
	}

	result, err := h.signupService.Signup(c.Context(), member, req.ArtistClassID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClassNotFound):
			return response.NotFound(c, "Class not found")
		case errors.Is(err, services.ErrAlreadyEnrolled):
			return response.BadRequest(c, "Already enrolled in this class")
		default:
			log.Printf("[SIGNUP] signup failed for member %d class %d: %v", member.ID, req.ArtistClassID, err)
			return response.BadGateway(c, "Failed to set up payment")
		}
	}

	if result.FreeConfirmed {
		return response.Created(c, fiber.Map{
			"status":   model.SignupConfirmed,
			"amount":   result.Amount,
			"currency": result.Currency,
		})
	}

	return response.Success(c, result)
}

// ConfirmPayment handles POST /api/v1/classes/confirm-payment. The intent's
// live status is verified with the gateway; a client cannot confirm a payment
// Stripe has not seen succeed.
func (h *ClassHandler) ConfirmPayment(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.PaymentIntentID == "" {
		return response.BadRequest(c, "payment_intent_id is required")
	}

	payment, err := h.signupService.ConfirmPayment(c.Context(), req.PaymentIntentID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			return response.NotFound(c, "Payment not found")
		case errors.Is(err, services.ErrPaymentNotSucceeded):
			return response.BadRequest(c, "Payment has not succeeded")
		default:
			log.Printf("[CONFIRM] failed to confirm intent %s: %v", req.PaymentIntentID, err)
			return response.BadGateway(c, "Failed to verify payment")
		}
	}

	// Same best-effort notification as the webhook path; whichever path
	// lands first sends it, a duplicate is acceptable.
	h.notifyClassAccess(payment)

	return response.Success(c, fiber.Map{
		"payment_status": payment.Status,
		"signup_status":  model.SignupConfirmed,
	})
}

// RegistrationStatus handles GET /api/v1/classes/:id/registration-status.
func (h *ClassHandler) RegistrationStatus(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	id := c.Params("id")

	var class model.ArtistClass
	if err := h.db.First(&class, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Class not found")
		}
		return response.InternalServerError(c, "Failed to fetch class")
	}

	res := fiber.Map{
		"is_registered":  false,
		"signup_status":  "",
		"payment_status": "",
	}

	var signup model.MemberClassSignup
	if err := h.db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).
		First(&signup).Error; err == nil {
		res["signup_status"] = signup.Status
		res["is_registered"] = signup.Status == model.SignupConfirmed
	}

	var payment model.Payment
	if err := h.db.Where("member_id = ? AND artist_class_id = ?", member.ID, class.ID).
		Order("created_at DESC").
		First(&payment).Error; err == nil {
		res["payment_status"] = payment.Status
	}

	return response.Success(c, res)
}

// ResendVideoURL handles POST /api/v1/classes/:id/video-url. A registered
// member re-requests the access link; it goes to the guardian-resolved
// address for child accounts.
func (h *ClassHandler) ResendVideoURL(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	id := c.Params("id")

	var class model.ArtistClass
	if err := h.db.First(&class, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Class not found")
		}
		return response.InternalServerError(c, "Failed to fetch class")
	}

	var signup model.MemberClassSignup
	err := h.db.Where("member_id = ? AND artist_class_id = ? AND status = ?",
		member.ID, class.ID, model.SignupConfirmed).
		First(&signup).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.Forbidden(c, "Not registered for this class")
		}
		return response.InternalServerError(c, "Failed to check registration")
	}

	if class.URL == "" {
		return response.BadRequest(c, "No access link available for this class")
	}

	recipient := member.NotificationEmail()
	if err := h.mailer.SendClassLinkEmail(recipient, member.Name, class.Name, class.URL); err != nil {
		log.Printf("[CLASS] failed to resend access link for class %d to %s: %v", class.ID, recipient, err)
		return response.InternalServerError(c, "Failed to send email")
	}

	return response.Success(c, fiber.Map{
		"message": "Access link sent",
	})
}

// notifyClassAccess emails the class link for real-time classes after a
// successful payment. Failures are logged and never affect the caller's
// response.
func (h *ClassHandler) notifyClassAccess(payment *model.Payment) {
	if payment == nil || payment.ArtistClass.ClassType != model.ClassTypeRealTime {
		return
	}
	if payment.ArtistClass.URL == "" {
		return
	}

	recipient := payment.Member.NotificationEmail()
	if err := h.mailer.SendClassLinkEmail(recipient, payment.Member.Name, payment.ArtistClass.Name, payment.ArtistClass.URL); err != nil {
		log.Printf("[CLASS] failed to send access link for class %d to %s: %v", payment.ArtistClassID, recipient, err)
	}
}
