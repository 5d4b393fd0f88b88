package telegram

import (
	"log"

	"github.com/gofiber/fiber/v2"
	tg "github.com/meinside/telegram-bot-go"
)

// Webhook returns a fiber handler that accepts Telegram update payloads.
// Telegram expects a fast 200 response, so the command runs in the
// background while the handler returns immediately.
func (b *Bot) Webhook() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var update tg.Update
		if err := c.BodyParser(&update); err != nil {
			log.Printf("failed to parse telegram update: %v", err)
			return fiber.NewError(fiber.StatusBadRequest, "Invalid update payload")
		}

		go b.HandleUpdate(update)

		return c.SendStatus(fiber.StatusOK)
	}
}
