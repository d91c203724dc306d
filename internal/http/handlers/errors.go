package handlers

import (
	"errors"

	"github.com/crowdfund/backend/internal/http/dto"
	"github.com/crowdfund/backend/internal/middleware"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/crowdfund/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/jellydator/validation"
	"go.uber.org/zap"
)

// respondError maps service and validation errors to HTTP responses.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID := middleware.GetRequestID(c)

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for field, e := range verrs {
			if e != nil {
				details[field] = e.Error()
			}
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "validation failed", Details: details, RequestID: reqID})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidID),
		errors.Is(err, services.ErrInvalidAddress),
		errors.Is(err, services.ErrSoftcapAboveTarget):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidSignature):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrNotOwner):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrCampaignClosed),
		errors.Is(err, repositories.ErrDuplicate):
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", reqID), zap.Error(err))
		return c.Status(status).JSON(dto.ErrorResponse{Error: "internal server error", RequestID: reqID})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: reqID})
}
