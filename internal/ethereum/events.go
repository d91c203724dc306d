package ethereum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrUnknownEvent = errors.New("unknown event")

type CampaignFunded struct {
	CampaignId *big.Int
	Funder     common.Address
	Amount     *big.Int
	Raw        types.Log
}

type FundsWithdrawn struct {
	CampaignId *big.Int
	Owner      common.Address
	Amount     *big.Int
	Raw        types.Log
}

type CampaignClosed struct {
	CampaignId *big.Int
	Raw        types.Log
}

type Refunded struct {
	CampaignId *big.Int
	Funder     common.Address
	Amount     *big.Int
	Raw        types.Log
}

// DecodeLog unpacks a campaign event into one of the typed event structs.
func (c *CampaignContract) DecodeLog(log types.Log) (any, error) {
	if len(log.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	ev, err := c.abi.EventByID(log.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, log.Topics[0].Hex())
	}

	var out any
	switch ev.Name {
	case EventFunded:
		out = &CampaignFunded{Raw: log}
	case EventWithdrawn:
		out = &FundsWithdrawn{Raw: log}
	case EventClosed:
		out = &CampaignClosed{Raw: log}
	case EventRefunded:
		out = &Refunded{Raw: log}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
	}
	if err := c.bound.UnpackLog(out, ev.Name, log); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", ev.Name, err)
	}
	return out, nil
}
