package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	applog "cartscout/internal/log"
	"cartscout/internal/services"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

func okMeta(c *fiber.Ctx, data any, meta fiber.Map) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data, "meta": meta})
}

func noContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// SendError writes the error envelope for an AppError.
func SendError(c *fiber.Ctx, e *services.AppError) error {
	return c.Status(e.Status).JSON(fiber.Map{"error": errorBody{Code: e.Code, Message: e.Message}})
}

// fail is the single exit for handler errors. AppErrors go to the client as
// they are; anything else is logged and reported as INTERNAL_ERROR.
func fail(c *fiber.Ctx, action string, err error) error {
	if ae, isApp := services.AsAppError(err); isApp {
		if ae.Status >= 500 {
			applog.Error(c, action+".fail", err, nil)
		}
		return SendError(c, ae)
	}
	applog.Error(c, action+".fail", err, nil)
	return SendError(c, services.Internal())
}

// decode reads a JSON request body into v. An empty body decodes as {}.
func decode(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return services.Validation(fmt.Sprintf("%s has the wrong type", te.Field))
		}
		var fe *fieldError
		if errors.As(err, &fe) {
			return services.Validation(fe.msg)
		}
		return services.Validation("Request body must be a JSON object")
	}
	return nil
}

type fieldError struct{ msg string }

func (e *fieldError) Error() string { return e.msg }

// optString records whether a nullable string field was present at all.
type optString struct {
	Set   bool
	Value *string
}

func (o *optString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &fieldError{msg: "week_start must be a string or null"}
	}
	o.Value = &s
	return nil
}

// flexBool accepts true/false as well as the 0/1 some clients send.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0":
		*b = false
	default:
		return &fieldError{msg: "checked must be a boolean"}
	}
	return nil
}
