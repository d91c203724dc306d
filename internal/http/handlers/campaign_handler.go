package handlers

import (
	"context"
	"mime/multipart"

	"github.com/crowdfund/backend/internal/http/dto"
	"github.com/crowdfund/backend/internal/middleware"
	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/crowdfund/backend/internal/services"
	"github.com/crowdfund/backend/internal/validators"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type campaignService interface {
	Get(ctx context.Context, idOrPID string) (*models.Campaign, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, int64, error)
	DonationTotal(ctx context.Context, idOrPID, funder string) (float64, error)
	History(ctx context.Context, idOrPID string, limit int) ([]models.AuditLog, error)
	Create(ctx context.Context, owner string, in services.CreateCampaignInput, image services.ImageUpload) (*models.Campaign, error)
	Update(ctx context.Context, actor, idOrPID string, d repositories.CampaignDetails) (*models.Campaign, error)
}

type CampaignHandler struct {
	campaignService campaignService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService campaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	filter := repositories.CampaignFilter{
		Search: c.Query("search"),
		Owner:  c.Query("owner"),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	}
	filter.Normalize()

	if filter.Status != "" && filter.Status != models.CampaignStatusOpen && filter.Status != models.CampaignStatusClosed {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "status must be Open or Closed", RequestID: middleware.GetRequestID(c)})
	}

	campaigns, total, err := h.campaignService.List(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.ListResponse{OK: true, Data: campaigns, Page: filter.Page, Limit: filter.Limit, Total: total})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	campaign, err := h.campaignService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

// GetDonation returns how much address has given to the campaign, 0 if nothing.
func (h *CampaignHandler) GetDonation(c *fiber.Ctx) error {
	total, err := h.campaignService.DonationTotal(c.UserContext(), c.Params("id"), c.Params("address"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: total})
}

func (h *CampaignHandler) GetHistory(c *fiber.Ctx) error {
	entries, err := h.campaignService.History(c.UserContext(), c.Params("id"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "multipart form expected", RequestID: middleware.GetRequestID(c)})
	}

	input := make(map[string]any, len(form.Value)+1)
	for k, vs := range form.Value {
		if len(vs) > 0 {
			input[k] = vs[0]
		}
	}
	delete(input, "image")
	fh, _ := c.Locals(middleware.CtxUpload).(*multipart.FileHeader)
	if fh != nil {
		input["image"] = fh.Filename
	}

	var req validators.CampaignCreate
	if err := validators.Decode(input, &req); err != nil {
		return respondError(c, h.log, err)
	}

	file, err := fh.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer file.Close()

	campaign, err := h.campaignService.Create(c.UserContext(), middleware.GetAddress(c),
		services.CreateCampaignInput{
			PID:         int64(*req.PID),
			Title:       req.Title,
			Description: req.Desc,
			Category:    req.Category,
			Message:     req.Message,
			Target:      *req.Target,
			Softcap:     *req.Softcap,
		},
		services.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Body:        file,
		},
	)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.log.Info("campaign registered", zap.Int64("pId", campaign.PID), zap.String("owner", campaign.Owner))
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body", RequestID: middleware.GetRequestID(c)})
	}

	var req validators.CampaignUpdate
	if err := validators.Decode(body, &req); err != nil {
		return respondError(c, h.log, err)
	}

	campaign, err := h.campaignService.Update(c.UserContext(), middleware.GetAddress(c), c.Params("id"),
		repositories.CampaignDetails{
			Title:       req.Title,
			Description: req.Desc,
			Message:     req.Message,
		})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}
