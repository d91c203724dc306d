package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CampaignStatusOpen   = "Open"
	CampaignStatusClosed = "Closed"
)

// Campaign mirrors an on-chain campaign. Amounts are in ETH.
type Campaign struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PID             int64              `bson:"pId" json:"pId"`
	Owner           string             `bson:"owner" json:"owner"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Category        string             `bson:"category" json:"category"`
	Image           string             `bson:"image" json:"image"`
	Message         string             `bson:"message,omitempty" json:"message,omitempty"`
	Target          float64            `bson:"target" json:"target"`
	Softcap         float64            `bson:"softcap" json:"softcap"`
	AmountCollected float64            `bson:"amountCollected" json:"amountCollected"`
	WithdrawnAmount float64            `bson:"withdrawnAmount" json:"withdrawnAmount"`
	Status          string             `bson:"status" json:"status"`
	Donations       []Donation         `bson:"-" json:"donations"`
	AppliedLogs     []string           `bson:"appliedLogs,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c *Campaign) IsOpen() bool {
	return c.Status == CampaignStatusOpen
}

// Unwithdrawn is the collected balance the owner has not withdrawn yet.
func (c *Campaign) Unwithdrawn() float64 {
	v := c.AmountCollected - c.WithdrawnAmount
	if v < 0 {
		return 0
	}
	return v
}

func (c *Campaign) SoftcapReached() bool {
	return c.AmountCollected >= c.Softcap
}
