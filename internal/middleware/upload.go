package middleware

import (
	"strings"

	"github.com/crowdfund/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
)

const (
	CtxUpload = "upload"

	ImageOnlyMessage = "Only images are allowed!"
)

// ImageUpload accepts at most one image in the multipart field. Requests
// without the file pass through so the form validation can report it.
func ImageUpload(field string, maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile(field)
		if err != nil {
			return c.Next()
		}

		if fh.Size > maxBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Error: "File too large", RequestID: GetRequestID(c)})
		}
		if !strings.HasPrefix(fh.Header.Get(fiber.HeaderContentType), "image/") {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: ImageOnlyMessage, RequestID: GetRequestID(c)})
		}

		c.Locals(CtxUpload, fh)
		return c.Next()
	}
}
