package campaign

import (
	"github.com/crowdfund/backend/internal/models"
	"github.com/shopspring/decimal"
)

// CalculatePercentage is how much of target the amount covers, rounded to a
// whole percent and clamped to [0, 100]. A non-positive target yields 0.
func CalculatePercentage(target, amount float64) int {
	if target <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromFloat(target)).
		Round(0).
		IntPart()

	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

type Metrics struct {
	BarPercentage     int
	SoftcapPercentage int
	Unwithdrawn       float64
	Funders           int
}

func ComputeMetrics(c *models.Campaign) Metrics {
	if c == nil {
		return Metrics{}
	}

	funders := make(map[string]struct{})
	for _, d := range c.Donations {
		if !d.Refunded {
			funders[d.Funder] = struct{}{}
		}
	}

	return Metrics{
		BarPercentage:     CalculatePercentage(c.Target, c.AmountCollected),
		SoftcapPercentage: CalculatePercentage(c.Target, c.Softcap),
		Unwithdrawn:       c.Unwithdrawn(),
		Funders:           len(funders),
	}
}
