package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/services"
	authutil "github.com/museume/museume-backend/utils/auth"
	"github.com/museume/museume-backend/utils/middleware"
	"github.com/museume/museume-backend/utils/response"
	"github.com/museume/museume-backend/utils/ulid"
	"github.com/museume/museume-backend/utils/validation"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *authutil.JWTManager
	bruteForceProtection *middleware.BruteForceProtection
	mailer               *services.EmailService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection, mailer *services.EmailService) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           jwtManager,
		bruteForceProtection: bruteForceProtection,
		mailer:               mailer,
	}
}

// RegisterRequest represents a member registration request
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

// RegisterChildRequest represents a child account registration request.
// Children have no email of their own; a placeholder under the parent's
// address is generated for them.
type RegisterChildRequest struct {
	Username    string     `json:"username" validate:"required,min=3,max=30"`
	Password    string     `json:"password" validate:"required,min=8"`
	Name        string     `json:"name" validate:"required,min=2,max=100"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// AuthResponse represents a successful registration or login response
type AuthResponse struct {
	Member       MemberResponse `json:"member"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresIn    int            `json:"expires_in"` // in seconds
}

// MemberResponse represents member data in responses
type MemberResponse struct {
	ID        uint      `json:"id"`
	ULID      string    `json:"ulid"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ParentID  *uint     `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newMemberResponse(m *model.Member) MemberResponse {
	return MemberResponse{
		ID:        m.ID,
		ULID:      m.ULID,
		Username:  m.Username,
		Email:     m.Email,
		Name:      m.Name,
		Role:      m.Role,
		ParentID:  m.ParentID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// Register handles parent account registration
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Username = validation.SanitizeString(req.Username)
	req.Email = validation.SanitizeString(req.Email)
	req.Name = validation.SanitizeString(req.Name)

	if req.Email == "" || req.Password == "" || req.Username == "" {
		return response.BadRequest(c, "Username, email, and password are required")
	}

	if ok, msg := validation.ValidateUsername(req.Username); !ok {
		return response.BadRequest(c, msg)
	}

	// Check for existing username or email
	var existing model.Member
	if err := h.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error; err == nil {
		return response.Conflict(c, "A member with this username or email already exists")
	}

	hashedPassword, err := authutil.HashPassword(req.Password)
	if err != nil {
		if err == authutil.ErrPasswordTooShort {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to process password")
	}

	member := model.Member{
		ULID:         ulid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Role:         model.RoleParent,
		TokenVersion: 0,
	}

	if err := h.db.Create(&member).Error; err != nil {
		return response.InternalServerError(c, "Failed to create member")
	}

	return h.respondWithTokens(c, &member, true)
}

// RegisterChild handles child account creation by an authenticated parent.
// The child's placeholder email resolves to the parent's address for every
// notification the platform sends.
func (h *AuthHandler) RegisterChild(c *fiber.Ctx) error {
	parent, ok := middleware.GetMember(c)
	if !ok || parent == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	if parent.Role != model.RoleParent {
		return response.Forbidden(c, "Only parent accounts can register children")
	}

	var req RegisterChildRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Username = validation.SanitizeString(req.Username)
	req.Name = validation.SanitizeString(req.Name)

	if ok, msg := validation.ValidateUsername(req.Username); !ok {
		return response.BadRequest(c, msg)
	}

	var existing model.Member
	if err := h.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return response.Conflict(c, "A member with this username already exists")
	}

	hashedPassword, err := authutil.HashPassword(req.Password)
	if err != nil {
		if err == authutil.ErrPasswordTooShort {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to process password")
	}

	childULID := ulid.New()
	child := model.Member{
		ULID:         childULID,
		Username:     req.Username,
		Email:        model.ChildEmail(parent.Email, childULID),
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Role:         model.RoleChild,
		ParentID:     &parent.ID,
		DateOfBirth:  req.DateOfBirth,
		TokenVersion: 0,
	}

	if err := h.db.Create(&child).Error; err != nil {
		return response.InternalServerError(c, "Failed to create child account")
	}

	return response.Created(c, newMemberResponse(&child))
}

// respondWithTokens issues an access/refresh pair for the member.
func (h *AuthHandler) respondWithTokens(c *fiber.Ctx, member *model.Member, created bool) error {
	accessToken, err := h.jwtManager.GenerateAccessToken(member.ID, member.Email, member.Role, member.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate access token")
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(member.ID, member.Email, member.Role, member.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate refresh token")
	}

	res := AuthResponse{
		Member:       newMemberResponse(member),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    24 * 60 * 60, // 24 hours in seconds
	}

	if created {
		return response.Created(c, res)
	}
	return response.Success(c, res)
}
