package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	goeth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	MethodFund     = "fundInEth"
	MethodWithdraw = "withdrawFunds"
	MethodClose    = "closeCampaign"
	MethodRefund   = "refund"

	EventFunded    = "CampaignFunded"
	EventWithdrawn = "FundsWithdrawn"
	EventClosed    = "CampaignClosed"
	EventRefunded  = "Refunded"
)

var ErrNoSigner = errors.New("contract handle has no signer")

// Backend is what the contract wrapper needs from a node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// CampaignContract wraps the deployed crowdfunding contract.
type CampaignContract struct {
	address common.Address
	abi     abi.ABI
	backend Backend
	bound   *bind.BoundContract
	signer  *bind.TransactOpts
}

func NewCampaignContract(address common.Address, parsed abi.ABI, backend Backend) *CampaignContract {
	return &CampaignContract{
		address: address,
		abi:     parsed,
		backend: backend,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// WithSigner returns a copy of the handle that sends transactions from signer.
func (c *CampaignContract) WithSigner(signer *bind.TransactOpts) *CampaignContract {
	cp := *c
	cp.signer = signer
	return &cp
}

func (c *CampaignContract) Address() common.Address {
	return c.address
}

func (c *CampaignContract) ABI() abi.ABI {
	return c.abi
}

func (c *CampaignContract) FundInEth(ctx context.Context, campaignID int64, value *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, value, MethodFund, big.NewInt(campaignID))
}

func (c *CampaignContract) WithdrawFunds(ctx context.Context, campaignID int64) (*types.Receipt, error) {
	return c.transact(ctx, nil, MethodWithdraw, big.NewInt(campaignID))
}

func (c *CampaignContract) CloseCampaign(ctx context.Context, campaignID int64) (*types.Receipt, error) {
	return c.transact(ctx, nil, MethodClose, big.NewInt(campaignID))
}

func (c *CampaignContract) Refund(ctx context.Context, campaignID int64) (*types.Receipt, error) {
	return c.transact(ctx, nil, MethodRefund, big.NewInt(campaignID))
}

// transact sends the call and blocks until it is mined.
func (c *CampaignContract) transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Receipt, error) {
	if c.signer == nil {
		return nil, ErrNoSigner
	}

	opts := *c.signer
	opts.Context = ctx
	opts.Value = value

	tx, err := c.bound.Transact(&opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%s: wait for %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%s: transaction %s reverted", method, tx.Hash().Hex())
	}
	return receipt, nil
}

// FilterQuery selects the contract's campaign events in [from, to].
func (c *CampaignContract) FilterQuery(from, to uint64) goeth.FilterQuery {
	topics := make([]common.Hash, 0, 4)
	for _, name := range []string{EventFunded, EventWithdrawn, EventClosed, EventRefunded} {
		if ev, ok := c.abi.Events[name]; ok {
			topics = append(topics, ev.ID)
		}
	}
	return goeth.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{topics},
	}
}

func (c *CampaignContract) FilterLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	return c.backend.FilterLogs(ctx, c.FilterQuery(from, to))
}
