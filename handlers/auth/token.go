package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse represents a token refresh response
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	if claims.TokenType != "refresh" {
		return response.Unauthorized(c, "Invalid token type")
	}

	// Load member to get the current token version
	var member model.Member
	if err := h.db.First(&member, claims.MemberID).Error; err != nil {
		return response.Unauthorized(c, "Member not found")
	}

	if member.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(member.ID, member.Email, member.Role, member.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate access token")
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(member.ID, member.Email, member.Role, member.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate refresh token")
	}

	res := RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    24 * 60 * 60, // 24 hours
	}

	return response.Success(c, res)
}

// Logout invalidates every outstanding token for the member by bumping
// the token version.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	member, ok := middleware.GetMember(c)
	if !ok || member == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	if err := h.db.Model(&model.Member{}).
		Where("id = ?", member.ID).
		Update("token_version", member.TokenVersion+1).Error; err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.Success(c, fiber.Map{
		"message": "Successfully logged out",
	})
}
