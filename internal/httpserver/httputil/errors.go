package httputil

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Stable machine-readable error codes returned alongside the human
// message. Dashboard clients branch on these, so they never change
// even when the message wording does.
const (
	CodeInvalidRange        = "invalid_range"
	CodeUnsupportedGrouping = "unsupported_grouping"
	CodeDataSourceError     = "data_source_error"
)

// WriteError standardizes JSON error responses across the admin API.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// WriteCodedError writes an error envelope carrying a stable code next
// to the message.
func WriteCodedError(c *fiber.Ctx, status int, code, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}
