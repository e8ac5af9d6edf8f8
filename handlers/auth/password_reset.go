package auth

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/museume/museume-backend/model"
	authutil "github.com/museume/museume-backend/utils/auth"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
)

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset with token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ForgotPassword handles a password reset request. The response never
// reveals whether the address is on file. Child placeholder addresses are
// ignored; a guardian manages those credentials.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}

	neutral := fiber.Map{
		"message": "If the email exists, a password reset link will be sent",
	}

	if model.IsChildEmail(req.Email) {
		return response.Success(c, neutral)
	}

	var member model.Member
	if err := h.db.Where("email = ?", req.Email).First(&member).Error; err != nil {
		return response.Success(c, neutral)
	}

	resetToken := uuid.New().String()
	passwordReset := model.PasswordResetToken{
		MemberID:  member.ID,
		Token:     resetToken,
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	if err := h.db.Create(&passwordReset).Error; err != nil {
		return response.InternalServerError(c, "Failed to create reset token")
	}

	if h.mailer != nil {
		if err := h.mailer.SendPasswordResetEmail(member.Email, member.Name, resetToken); err != nil {
			log.Printf("[AUTH] failed to send reset email to %s: %v", member.Email, err)
		}
	}

	return response.Success(c, neutral)
}

// ResetPassword handles password reset with a token
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Token == "" || req.NewPassword == "" {
		return response.BadRequest(c, "Token and new password are required")
	}

	var resetToken model.PasswordResetToken
	if err := h.db.Where("token = ?", req.Token).First(&resetToken).Error; err != nil {
		return response.BadRequest(c, "Invalid or expired reset token")
	}

	if resetToken.IsExpired() {
		return response.BadRequest(c, "Reset token has expired")
	}
	if resetToken.IsUsed() {
		return response.BadRequest(c, "Reset token has already been used")
	}

	var member model.Member
	if err := h.db.First(&member, resetToken.MemberID).Error; err != nil {
		return response.BadRequest(c, "Member not found")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		if err == authutil.ErrPasswordTooShort {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to process password")
	}

	// Invalidate every outstanding token along with the old password
	if err := h.db.Model(&member).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": member.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	resetToken.MarkAsUsed()
	h.db.Save(&resetToken)

	return response.Success(c, fiber.Map{
		"message": "Password reset successfully",
	})
}

// ChangePassword handles password change for authenticated members
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return response.BadRequest(c, "Old password and new password are required")
	}

	if err := authutil.VerifyPassword(member.PasswordHash, req.OldPassword); err != nil {
		return response.BadRequest(c, "Current password is incorrect")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		if err == authutil.ErrPasswordTooShort {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to process password")
	}

	if err := h.db.Model(member).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": member.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	return response.Success(c, fiber.Map{
		"message": "Password changed successfully. Please login again with your new password",
	})
}
