package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
	"github.com/museume/museume-backend/utils/validation"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Name        string     `json:"name,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// ProfileResponse is a member profile with children included for parents
type ProfileResponse struct {
	MemberResponse
	Children []MemberResponse `json:"children,omitempty"`
}

// GetProfile retrieves the current member's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	current, ok := middleware.GetMember(c)
	if !ok || current == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var member model.Member
	if err := h.db.Preload("Children").First(&member, current.ID).Error; err != nil {
		return response.NotFound(c, "Member not found")
	}

	res := ProfileResponse{MemberResponse: newMemberResponse(&member)}
	for i := range member.Children {
		res.Children = append(res.Children, newMemberResponse(&member.Children[i]))
	}

	return response.Success(c, res)
}

// UpdateProfile updates the current member's profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	current, ok := middleware.GetMember(c)
	if !ok || current == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var member model.Member
	if err := h.db.First(&member, current.ID).Error; err != nil {
		return response.NotFound(c, "Member not found")
	}

	if req.Name != "" {
		member.Name = validation.SanitizeString(req.Name)
	}
	if req.DateOfBirth != nil {
		member.DateOfBirth = req.DateOfBirth
	}

	if err := h.db.Save(&member).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, newMemberResponse(&member))
}
