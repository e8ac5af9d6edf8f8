package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/museume/museume-backend/model"
	"github.com/museume/museume-backend/utils/auth"
	"github.com/museume/museume-backend/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	db         *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		db:         db,
	}
}

// authenticate validates the bearer token and loads the member behind it.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.Member, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, response.Unauthorized(c, "Missing authorization token")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, response.Unauthorized(c, "Invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if err == auth.ErrExpiredToken {
			return nil, nil, response.Unauthorized(c, "Token has expired")
		}
		return nil, nil, response.Unauthorized(c, "Invalid token")
	}

	if claims.TokenType != "access" {
		return nil, nil, response.Unauthorized(c, "Invalid token type")
	}

	var member model.Member
	if err := m.db.First(&member, claims.MemberID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, response.Unauthorized(c, "Member not found")
		}
		return nil, nil, response.InternalServerError(c, "Failed to load member")
	}

	// Bumping token_version invalidates every token issued before the bump
	if member.TokenVersion != claims.TokenVersion {
		return nil, nil, response.Unauthorized(c, "Token has been invalidated")
	}

	return claims, &member, nil
}

func storeMember(c *fiber.Ctx, claims *auth.Claims, member *model.Member) {
	c.Locals("member_id", claims.MemberID)
	c.Locals("member_email", claims.Email)
	c.Locals("member_role", claims.Role)
	c.Locals("claims", claims)
	c.Locals("member", member)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, member, err := m.authenticate(c)
		if err != nil {
			return err
		}
		storeMember(c, claims, member)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Next()
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil || claims.TokenType != "access" {
			return c.Next()
		}

		var member model.Member
		if err := m.db.First(&member, claims.MemberID).Error; err != nil {
			return c.Next()
		}

		if member.TokenVersion != claims.TokenVersion {
			return c.Next()
		}

		storeMember(c, claims, &member)
		return c.Next()
	}
}

// RequireRole is middleware that requires a specific member role
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		memberRole := c.Locals("member_role")
		if memberRole == nil {
			return response.Forbidden(c, "Access denied")
		}

		role := memberRole.(string)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Insufficient permissions")
	}
}

// RequireAdmin is middleware that requires the admin role
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, member, err := m.authenticate(c)
		if err != nil {
			return err
		}

		if claims.Role != model.RoleAdmin {
			return response.Forbidden(c, "Admin access required")
		}

		storeMember(c, claims, member)
		return c.Next()
	}
}

// GetMemberID extracts the member ID from context
func GetMemberID(c *fiber.Ctx) (uint, bool) {
	memberID := c.Locals("member_id")
	if memberID == nil {
		return 0, false
	}
	id, ok := memberID.(uint)
	return id, ok
}

// GetMember extracts the full member object from context
func GetMember(c *fiber.Ctx) (*model.Member, bool) {
	member := c.Locals("member")
	if member == nil {
		return nil, false
	}
	m, ok := member.(*model.Member)
	return m, ok
}

// GetMemberRole extracts the member role from context
func GetMemberRole(c *fiber.Ctx) (string, bool) {
	role := c.Locals("member_role")
	if role == nil {
		return "", false
	}
	r, ok := role.(string)
	return r, ok
}
