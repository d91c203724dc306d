package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/crowdfund/backend/internal/ethereum"
	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/validators"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	// ErrNotAllowed is returned when the caller's role or the campaign state
	// rules the action out. Nothing is sent and nothing is shown.
	ErrNotAllowed = errors.New("action not allowed")
	ErrBusy       = errors.New("another action is in progress")
)

const (
	MsgFunded    = "Funded!"
	MsgWithdrawn = "Funds withdrawn successfully!"
	MsgClosed    = "Campaign closed!"
	MsgRefunded  = "Refunded!"
)

type Contract interface {
	FundInEth(ctx context.Context, campaignID int64, value *big.Int) (*types.Receipt, error)
	WithdrawFunds(ctx context.Context, campaignID int64) (*types.Receipt, error)
	CloseCampaign(ctx context.Context, campaignID int64) (*types.Receipt, error)
	Refund(ctx context.Context, campaignID int64) (*types.Receipt, error)
}

type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type View interface {
	Campaign() *models.Campaign
	Allowed(a Action) bool
	Refetch(ctx context.Context) error
}

// Dispatcher runs one campaign action at a time against the contract.
type Dispatcher struct {
	contract Contract
	notifier Notifier
	log      *zap.Logger
	busy     atomic.Bool
}

func NewDispatcher(contract Contract, notifier Notifier, log *zap.Logger) *Dispatcher {
	return &Dispatcher{contract: contract, notifier: notifier, log: log}
}

func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

func (d *Dispatcher) Fund(ctx context.Context, v View, amount string) error {
	return d.run(ctx, v, ActionFund, MsgFunded, func(ctx context.Context, id int64) (*types.Receipt, error) {
		ether, err := validators.ValidateDonationAmount(amount)
		if err != nil {
			return nil, err
		}
		wei, err := ethereum.ParseEther(ether)
		if err != nil {
			return nil, err
		}
		return d.contract.FundInEth(ctx, id, wei)
	})
}

func (d *Dispatcher) Withdraw(ctx context.Context, v View) error {
	return d.run(ctx, v, ActionWithdraw, MsgWithdrawn, d.contract.WithdrawFunds)
}

func (d *Dispatcher) Close(ctx context.Context, v View) error {
	return d.run(ctx, v, ActionClose, MsgClosed, d.contract.CloseCampaign)
}

func (d *Dispatcher) Refund(ctx context.Context, v View) error {
	return d.run(ctx, v, ActionRefund, MsgRefunded, d.contract.Refund)
}

func (d *Dispatcher) run(ctx context.Context, v View, action Action, success string, call func(context.Context, int64) (*types.Receipt, error)) error {
	if !d.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer d.busy.Store(false)

	c := v.Campaign()
	if c == nil || !v.Allowed(action) {
		d.log.Debug("action skipped", zap.String("action", string(action)))
		return ErrNotAllowed
	}

	id, err := validators.ValidateCampaignID(c.PID)
	if err != nil {
		return d.fail(action, err)
	}

	receipt, err := call(ctx, id)
	if err != nil {
		return d.fail(action, err)
	}
	if receipt != nil {
		d.log.Info("transaction mined",
			zap.String("action", string(action)),
			zap.Int64("pId", id),
			zap.String("tx", receipt.TxHash.Hex()),
			zap.Stringer("block", receipt.BlockNumber),
		)
	}

	if err := v.Refetch(ctx); err != nil {
		d.log.Warn("refetch after action failed", zap.String("action", string(action)), zap.Error(err))
	}
	d.notifier.Success(success)
	return nil
}

func (d *Dispatcher) fail(action Action, err error) error {
	msg := validators.FormatError(err)
	d.log.Warn("action failed", zap.String("action", string(action)), zap.String("reason", msg))
	d.notifier.Error(msg)
	return fmt.Errorf("%s: %w", action, err)
}

// WriterNotifier prints notifications as lines, the terminal stand-in for toasts.
type WriterNotifier struct {
	Out io.Writer
}

func (n WriterNotifier) Success(msg string) {
	fmt.Fprintln(n.Out, "✔ "+msg)
}

func (n WriterNotifier) Error(msg string) {
	fmt.Fprintln(n.Out, "✖ "+msg)
}
