package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/crowdfund/backend/internal/events"
	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/rbac"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/crowdfund/backend/internal/storage"
	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrInvalidID          = errors.New("invalid campaign id")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrNotOwner           = errors.New("only the campaign owner can do this")
	ErrCampaignClosed     = errors.New("campaign is closed")
	ErrSoftcapAboveTarget = errors.New("softcap must not exceed target")
)

type campaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error)
	GetByPID(ctx context.Context, pid int64) (*models.Campaign, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, int64, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, d repositories.CampaignDetails) (*models.Campaign, error)
	IncCollected(ctx context.Context, pid int64, amount float64, logKey string) (*models.Campaign, error)
	IncWithdrawn(ctx context.Context, pid int64, amount float64, logKey string) (*models.Campaign, error)
	SetStatus(ctx context.Context, pid int64, status string) (*models.Campaign, error)
}

type donationStore interface {
	Insert(ctx context.Context, d *models.Donation) (bool, error)
	ListByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]models.Donation, error)
	TotalByFunder(ctx context.Context, campaignID primitive.ObjectID, funder string) (float64, error)
	MarkRefunded(ctx context.Context, campaignID primitive.ObjectID, funder string) (int64, error)
}

// AuditLogger records who changed what. Postgres-backed or a no-op.
type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
	ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error)
}

const (
	auditEntityCampaign = "campaign"
	maxHistory          = 100
)

type CampaignService struct {
	campaigns campaignStore
	donations donationStore
	images    storage.ImageStore
	audit     AuditLogger
	publisher events.Publisher
	log       *zap.Logger
}

func NewCampaignService(
	campaigns campaignStore,
	donations donationStore,
	images storage.ImageStore,
	audit AuditLogger,
	publisher events.Publisher,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		donations: donations,
		images:    images,
		audit:     audit,
		publisher: publisher,
		log:       log,
	}
}

// NormalizeAddress validates a hex address and returns its checksummed form.
func NormalizeAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s).Hex(), nil
}

// resolve accepts either the document id or the on-chain campaign index.
func (s *CampaignService) resolve(ctx context.Context, idOrPID string) (*models.Campaign, error) {
	if oid, err := primitive.ObjectIDFromHex(idOrPID); err == nil {
		return s.campaigns.GetByID(ctx, oid)
	}
	pid, err := strconv.ParseInt(idOrPID, 10, 64)
	if err != nil || pid < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, idOrPID)
	}
	return s.campaigns.GetByPID(ctx, pid)
}

// Get returns the campaign with its donations populated.
func (s *CampaignService) Get(ctx context.Context, idOrPID string) (*models.Campaign, error) {
	c, err := s.resolve(ctx, idOrPID)
	if err != nil {
		return nil, err
	}
	donations, err := s.donations.ListByCampaign(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load donations: %w", err)
	}
	c.Donations = donations
	return c, nil
}

func (s *CampaignService) List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, int64, error) {
	if f.Owner != "" {
		owner, err := NormalizeAddress(f.Owner)
		if err != nil {
			return nil, 0, err
		}
		f.Owner = owner
	}
	return s.campaigns.List(ctx, f)
}

// History returns the campaign's audit trail, newest first.
func (s *CampaignService) History(ctx context.Context, idOrPID string, limit int) ([]models.AuditLog, error) {
	c, err := s.resolve(ctx, idOrPID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	entries, err := s.audit.ListByEntity(ctx, auditEntityCampaign, c.ID.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

// DonationTotal is the funder's non-refunded contribution, 0 when none.
func (s *CampaignService) DonationTotal(ctx context.Context, idOrPID, funder string) (float64, error) {
	addr, err := NormalizeAddress(funder)
	if err != nil {
		return 0, err
	}
	c, err := s.resolve(ctx, idOrPID)
	if err != nil {
		return 0, err
	}
	return s.donations.TotalByFunder(ctx, c.ID, addr)
}

type CreateCampaignInput struct {
	PID         int64
	Title       string
	Description string
	Category    string
	Message     string
	Target      float64
	Softcap     float64
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Create registers a campaign that already exists on chain.
func (s *CampaignService) Create(ctx context.Context, owner string, in CreateCampaignInput, image ImageUpload) (*models.Campaign, error) {
	owner, err := NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}
	if in.Softcap > in.Target {
		return nil, ErrSoftcapAboveTarget
	}

	key := storage.NewImageKey(image.Filename)
	url, err := s.images.Put(ctx, key, image.Body, image.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	c := &models.Campaign{
		PID:         in.PID,
		Owner:       owner,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Message:     strings.TrimSpace(in.Message),
		Image:       url,
		Target:      in.Target,
		Softcap:     in.Softcap,
		Status:      models.CampaignStatusOpen,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			s.log.Warn("failed to remove orphaned image", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	c.Donations = []models.Donation{}

	s.record(ctx, &owner, "user", "campaign_created", c)
	s.notify(ctx, events.EventCampaignCreated, c, "created")
	return c, nil
}

// Update edits the off-chain details. Only the owner may edit, and only while Open.
func (s *CampaignService) Update(ctx context.Context, actor, idOrPID string, d repositories.CampaignDetails) (*models.Campaign, error) {
	c, err := s.resolve(ctx, idOrPID)
	if err != nil {
		return nil, err
	}
	if !rbac.HasPermission(rbac.RoleFor(sameAddress(c.Owner, actor)), rbac.PermEditCampaign) {
		return nil, ErrNotOwner
	}
	if !c.IsOpen() {
		return nil, ErrCampaignClosed
	}

	updated, err := s.campaigns.UpdateDetails(ctx, c.ID, d)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &updated.Owner, "user", "campaign_updated", updated)
	s.notify(ctx, events.EventCampaignUpdated, updated, "edited")
	return updated, nil
}

func sameAddress(a, b string) bool {
	return common.IsHexAddress(a) && common.IsHexAddress(b) && common.HexToAddress(a) == common.HexToAddress(b)
}

func (s *CampaignService) record(ctx context.Context, actor *string, actorType, action string, c *models.Campaign) {
	id := c.ID.Hex()
	err := s.audit.Log(ctx, models.AuditLog{
		ActorAddress: actor,
		ActorType:    actorType,
		Action:       action,
		EntityType:   auditEntityCampaign,
		EntityID:     &id,
		Meta: map[string]any{
			"pId":             c.PID,
			"amountCollected": c.AmountCollected,
			"withdrawnAmount": c.WithdrawnAmount,
			"status":          c.Status,
		},
	})
	if err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *CampaignService) notify(ctx context.Context, eventType string, c *models.Campaign, reason string) {
	ev := events.CampaignEvent(eventType, c.PID, c.ID.Hex(), reason)
	if err := s.publisher.Publish(ctx, events.CampaignStream, ev); err != nil {
		s.log.Warn("failed to publish campaign event", zap.Int64("pId", c.PID), zap.Error(err))
	}
}
