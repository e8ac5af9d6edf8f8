package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	authutil "github.com/museume/museume-backend/utils/auth"
	"github.com/museume/museume-backend/utils/response"
)

// LoginRequest represents a member login request. Children log in with
// their username since their email is a generated placeholder.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles member login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Password == "" {
		return response.BadRequest(c, "Username and password are required")
	}

	ip := c.IP()

	// An identifier with an @ is treated as an email address
	var member model.Member
	query := h.db.Where("username = ?", req.Username)
	if strings.Contains(req.Username, "@") {
		query = h.db.Where("email = ?", req.Username)
	}
	if err := query.First(&member).Error; err != nil {
		// Record failed attempt even if the member was not found
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid username or password")
	}

	if err := authutil.VerifyPassword(member.PasswordHash, req.Password); err != nil {
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Invalid username or password")
	}

	// Clear failed attempts on successful login
	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c, ip)
	}

	return h.respondWithTokens(c, &member, false)
}
