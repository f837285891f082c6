package chat

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-assistant"
)

// ErrorBody is the JSON error shape of the proxy.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handler serves the chat contract over HTTP: POST a Request, receive a Response.
func Handler(c Collaborator, logger assistant.Logger) fiber.Handler {
	logger = assistant.NormalizeLogger(logger)
	return func(ctx *fiber.Ctx) error {
		var req Request
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorBody{Error: "invalid JSON body", Code: ErrCodeInvalidRequest})
		}
		if err := req.Validate(); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorBody{Error: err.Error(), Code: assistant.ErrorCode(err)})
		}

		resp, err := c.Reply(ctx.UserContext(), req)
		if err != nil {
			logger.Warn("chat proxy reply failed err=%v", err)
			code := assistant.ErrorCode(err)
			if code == "" {
				code = assistant.ErrCodeCollaboratorUnavailable
			}
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(ErrorBody{Error: "chat collaborator unavailable", Code: code})
		}
		return ctx.JSON(resp)
	}
}
