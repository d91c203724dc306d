package campaign

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/rbac"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type Action string

const (
	ActionFund     Action = rbac.PermFund
	ActionWithdraw Action = rbac.PermWithdraw
	ActionClose    Action = rbac.PermClose
	ActionRefund   Action = rbac.PermRefund
)

type Fetcher interface {
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	GetDonation(ctx context.Context, id, address string) (float64, error)
}

// AddressSource reports the connected wallet, if any.
type AddressSource interface {
	Address() (common.Address, bool)
}

// DetailView holds one campaign as seen by the connected wallet.
type DetailView struct {
	id     string
	api    Fetcher
	wallet AddressSource
	log    *zap.Logger

	mu       sync.RWMutex
	campaign *models.Campaign
	donation float64
}

func NewDetailView(id string, api Fetcher, wallet AddressSource, log *zap.Logger) *DetailView {
	return &DetailView{id: id, api: api, wallet: wallet, log: log}
}

// Refetch reloads the campaign and the caller's donation total.
func (v *DetailView) Refetch(ctx context.Context) error {
	c, err := v.api.GetCampaign(ctx, v.id)
	if err != nil {
		return fmt.Errorf("load campaign %s: %w", v.id, err)
	}

	var donation float64
	if addr, ok := v.wallet.Address(); ok {
		donation, err = v.api.GetDonation(ctx, strconv.FormatInt(c.PID, 10), addr.Hex())
		if err != nil {
			return fmt.Errorf("load donation: %w", err)
		}
	}

	v.mu.Lock()
	v.campaign = c
	v.donation = donation
	v.mu.Unlock()
	return nil
}

// Campaign returns the last loaded campaign, nil before the first Refetch.
func (v *DetailView) Campaign() *models.Campaign {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.campaign == nil {
		return nil
	}
	cp := *v.campaign
	return &cp
}

func (v *DetailView) Donation() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.donation
}

func (v *DetailView) Metrics() Metrics {
	return ComputeMetrics(v.Campaign())
}

func (v *DetailView) IsOwner() bool {
	c := v.Campaign()
	addr, ok := v.wallet.Address()
	return ok && c != nil && common.IsHexAddress(c.Owner) && common.HexToAddress(c.Owner) == addr
}

// Allowed applies the client-side gating for an action. The chain is not
// consulted.
func (v *DetailView) Allowed(a Action) bool {
	c := v.Campaign()
	if c == nil {
		return false
	}
	_, connected := v.wallet.Address()
	return allowed(a, c, connected, v.IsOwner(), v.Donation())
}

func allowed(a Action, c *models.Campaign, connected, owner bool, donation float64) bool {
	if !connected || !rbac.HasPermission(rbac.RoleFor(owner), string(a)) {
		return false
	}
	switch a {
	case ActionFund:
		return c.IsOpen()
	case ActionRefund:
		return donation > 0 && !c.SoftcapReached()
	case ActionWithdraw:
		return c.SoftcapReached() && c.Unwithdrawn() > 0
	case ActionClose:
		return c.IsOpen()
	}
	return false
}

// Actions lists what the connected wallet can do right now.
func (v *DetailView) Actions() []Action {
	var out []Action
	for _, a := range []Action{ActionFund, ActionWithdraw, ActionClose, ActionRefund} {
		if v.Allowed(a) {
			out = append(out, a)
		}
	}
	return out
}
