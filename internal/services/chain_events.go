package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/crowdfund/backend/internal/events"
	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/repositories"
	"go.uber.org/zap"
)

// ChainEvent is a decoded contract event in document units (ether as float64).
type ChainEvent struct {
	PID      int64
	Account  string
	Amount   float64
	TxHash   string
	LogIndex uint
}

// Key identifies the log the event came from.
func (ev ChainEvent) Key() string {
	return ev.TxHash + ":" + strconv.FormatUint(uint64(ev.LogIndex), 10)
}

// ApplyFunded records the donation and bumps amountCollected. Both steps are
// keyed by the log, so a retry after a partial failure finishes the job and a
// replay changes nothing.
func (s *CampaignService) ApplyFunded(ctx context.Context, ev ChainEvent) error {
	c, err := s.campaigns.GetByPID(ctx, ev.PID)
	if err != nil {
		return fmt.Errorf("funded campaign %d: %w", ev.PID, err)
	}

	inserted, err := s.donations.Insert(ctx, &models.Donation{
		Campaign:     c.ID,
		PID:          ev.PID,
		Funder:       ev.Account,
		FundedAmount: ev.Amount,
		TxHash:       ev.TxHash,
		LogIndex:     ev.LogIndex,
	})
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	if !inserted {
		s.log.Debug("donation already mirrored", zap.String("tx", ev.TxHash), zap.Uint("log_index", ev.LogIndex))
	}

	updated, err := s.campaigns.IncCollected(ctx, ev.PID, ev.Amount, ev.Key())
	if errors.Is(err, repositories.ErrAlreadyApplied) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("increment collected: %w", err)
	}
	s.applied(ctx, "campaign_funded", ev, updated, "funded")
	return nil
}

func (s *CampaignService) ApplyWithdrawn(ctx context.Context, ev ChainEvent) error {
	updated, err := s.campaigns.IncWithdrawn(ctx, ev.PID, ev.Amount, ev.Key())
	if errors.Is(err, repositories.ErrAlreadyApplied) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("withdrawn campaign %d: %w", ev.PID, err)
	}
	s.applied(ctx, "funds_withdrawn", ev, updated, "withdrawn")
	return nil
}

func (s *CampaignService) ApplyClosed(ctx context.Context, ev ChainEvent) error {
	updated, err := s.campaigns.SetStatus(ctx, ev.PID, models.CampaignStatusClosed)
	if err != nil {
		return fmt.Errorf("closed campaign %d: %w", ev.PID, err)
	}
	s.applied(ctx, "campaign_closed", ev, updated, "closed")
	return nil
}

// ApplyRefunded flags the funder's donations as refunded and takes the
// refunded amount back out of amountCollected.
func (s *CampaignService) ApplyRefunded(ctx context.Context, ev ChainEvent) error {
	c, err := s.campaigns.GetByPID(ctx, ev.PID)
	if err != nil {
		return fmt.Errorf("refunded campaign %d: %w", ev.PID, err)
	}

	n, err := s.donations.MarkRefunded(ctx, c.ID, ev.Account)
	if err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	if n == 0 {
		s.log.Warn("refund without mirrored donations", zap.Int64("pId", ev.PID), zap.String("funder", ev.Account))
	}

	updated, err := s.campaigns.IncCollected(ctx, ev.PID, -ev.Amount, ev.Key())
	if errors.Is(err, repositories.ErrAlreadyApplied) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decrement collected: %w", err)
	}
	s.applied(ctx, "campaign_refunded", ev, updated, "refunded")
	return nil
}

func (s *CampaignService) applied(ctx context.Context, action string, ev ChainEvent, c *models.Campaign, reason string) {
	var actor *string
	if ev.Account != "" {
		actor = &ev.Account
	}
	s.record(ctx, actor, "indexer", action, c)
	s.notify(ctx, events.EventCampaignUpdated, c, reason)

	s.log.Info("chain event applied",
		zap.String("action", action),
		zap.Int64("pId", ev.PID),
		zap.Float64("amount", ev.Amount),
		zap.String("tx", ev.TxHash),
	)
}
