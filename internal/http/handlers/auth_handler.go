package handlers

import (
	"context"

	"github.com/crowdfund/backend/internal/http/dto"
	"github.com/crowdfund/backend/internal/middleware"
	"github.com/crowdfund/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type authService interface {
	IssueNonce(ctx context.Context, address string) (string, error)
	Verify(ctx context.Context, address, signature string) (string, error)
}

type AuthHandler struct {
	authService authService
	log         *zap.Logger
}

func NewAuthHandler(authService authService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Nonce hands out the message a wallet has to personal_sign to log in.
func (h *AuthHandler) Nonce(c *fiber.Ctx) error {
	var req dto.NonceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body", RequestID: middleware.GetRequestID(c)})
	}

	msg, err := h.authService.IssueNonce(c.UserContext(), req.Address)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NonceResponse{Message: msg}})
}

func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body", RequestID: middleware.GetRequestID(c)})
	}
	if req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "signature is required", RequestID: middleware.GetRequestID(c)})
	}

	token, err := h.authService.Verify(c.UserContext(), req.Address, req.Signature)
	if err != nil {
		return respondError(c, h.log, err)
	}

	addr, _ := services.NormalizeAddress(req.Address)
	h.log.Info("wallet signed in", zap.String("address", addr))
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.AuthResponse{Token: token, Address: addr}})
}
