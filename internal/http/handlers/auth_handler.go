package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cartscout/internal/log"
	"cartscout/internal/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body credentials
	if err := decode(c, &body); err != nil {
		return fail(c, "auth.register", err)
	}
	s, err := h.Auth.Register(body.Email, body.Password)
	if err != nil {
		if services.IsCode(err, services.CodeConflict) {
			log.Security(c, "auth.register.conflict", nil)
		}
		return fail(c, "auth.register", err)
	}
	c.Locals(log.UserIDKey, s.User.ID)
	log.Audit(c, "auth.register", map[string]any{"email": s.User.Email})
	return ok(c, fiber.StatusCreated, s)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body credentials
	if err := decode(c, &body); err != nil {
		return fail(c, "auth.login", err)
	}
	s, err := h.Auth.Login(body.Email, body.Password)
	if err != nil {
		if services.IsCode(err, services.CodeUnauthorized) {
			log.Security(c, "auth.login.fail", map[string]any{"email": body.Email})
		}
		return fail(c, "auth.login", err)
	}
	c.Locals(log.UserIDKey, s.User.ID)
	log.Audit(c, "auth.login.success", map[string]any{"email": s.User.Email})
	return ok(c, fiber.StatusOK, s)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(c, &body); err != nil {
		return fail(c, "auth.refresh", err)
	}
	s, err := h.Auth.Refresh(body.RefreshToken)
	if err != nil {
		if services.IsCode(err, services.CodeUnauthorized) {
			log.Security(c, "auth.refresh.fail", nil)
		}
		return fail(c, "auth.refresh", err)
	}
	c.Locals(log.UserIDKey, s.User.ID)
	log.Info(c, "auth.refresh", nil)
	return ok(c, fiber.StatusOK, s)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := h.Auth.Me(userID(c))
	if err != nil {
		return fail(c, "auth.me", err)
	}
	return ok(c, fiber.StatusOK, u)
}
