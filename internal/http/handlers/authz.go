package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"cartscout/internal/auth"
	applog "cartscout/internal/log"
	"cartscout/internal/services"
)

// RequireAuth admits requests carrying a valid access token and stores the
// caller's id in Locals.
func RequireAuth(iss *auth.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		scheme, tok, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
			return SendError(c, services.Unauthorized("Missing or invalid Authorization header"))
		}
		uid, err := iss.VerifyAccess(strings.TrimSpace(tok))
		if err != nil {
			applog.Security(c, "auth.token.invalid", map[string]any{"reason": err.Error()})
			return SendError(c, services.Unauthorized("Invalid or expired token"))
		}
		c.Locals(applog.UserIDKey, uid)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	uid, _ := c.Locals(applog.UserIDKey).(string)
	return uid
}
