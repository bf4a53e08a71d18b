package middleware

import (
	"context"
	"slices"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"querydesk/internal/models"
)

// UserLoader resolves the session's OIDC subject to a user.
type UserLoader interface {
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)
}

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	users UserLoader
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status": "error",
		"error":  "authentication required",
	})
}

// RequireAuth ensures the request carries a session for a known user and stores
// the user in Locals("user").
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return unauthorized(c)
	}

	sub, ok := sess.Get("user_sub").(string)
	if !ok || sub == "" {
		return unauthorized(c)
	}

	user, err := m.users.GetUserBySub(c.Context(), sub)
	if err != nil {
		sess.Destroy()
		return unauthorized(c)
	}

	c.Locals("user", user)
	return c.Next()
}

// RequireRole rejects users whose role is not one of roles. It must run after RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		user, ok := c.Locals("user").(*models.User)
		if !ok {
			return unauthorized(c)
		}
		if !slices.Contains(roles, user.Role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status": "error",
				"error":  "insufficient permissions",
			})
		}
		return c.Next()
	}
}
