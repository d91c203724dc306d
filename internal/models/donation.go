package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Donation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Campaign     primitive.ObjectID `bson:"campaign" json:"campaign"`
	PID          int64              `bson:"pId" json:"pId"`
	Funder       string             `bson:"funder" json:"funder"`
	FundedAmount float64            `bson:"fundedAmount" json:"fundedAmount"`
	TxHash       string             `bson:"txHash" json:"txHash"`
	LogIndex     uint               `bson:"logIndex" json:"-"`
	Refunded     bool               `bson:"refunded" json:"refunded"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
