package repositories

import (
	"context"
	"time"

	"github.com/crowdfund/backend/internal/db"
	"github.com/crowdfund/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DonationRepo struct {
	coll *mongo.Collection
}

func NewDonationRepo(database *mongo.Database) *DonationRepo {
	return &DonationRepo{coll: database.Collection(db.DonationsCollection)}
}

// Insert stores a mirrored donation. It reports false when the (txHash,
// logIndex) pair was already recorded.
func (r *DonationRepo) Insert(ctx context.Context, d *models.Donation) (bool, error) {
	d.ID = primitive.NewObjectID()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *DonationRepo) ListByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]models.Donation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"campaign": campaignID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	donations := []models.Donation{}
	if err := cur.All(ctx, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

// TotalByFunder sums the funder's donations that have not been refunded.
func (r *DonationRepo) TotalByFunder(ctx context.Context, campaignID primitive.ObjectID, funder string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"campaign": campaignID, "funder": funder, "refunded": false}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$fundedAmount"}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *DonationRepo) MarkRefunded(ctx context.Context, campaignID primitive.ObjectID, funder string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"campaign": campaignID, "funder": funder, "refunded": false},
		bson.M{"$set": bson.M{"refunded": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
