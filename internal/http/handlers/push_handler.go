package handlers

import (
	"github.com/gofiber/fiber/v2"

	"cartscout/internal/log"
	"cartscout/internal/services"
)

type PushHandler struct {
	Push *services.PushService
}

func (h *PushHandler) Register(c *fiber.Ctx) error {
	var body struct {
		Token    string `json:"token"`
		Platform string `json:"platform"`
	}
	if err := decode(c, &body); err != nil {
		return fail(c, "push.register", err)
	}
	r, err := h.Push.RegisterToken(userID(c), body.Token, body.Platform)
	if err != nil {
		return fail(c, "push.register", err)
	}
	log.Audit(c, "push.register", map[string]any{"platform": r.Platform})
	return ok(c, fiber.StatusCreated, r)
}
