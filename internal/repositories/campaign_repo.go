package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/crowdfund/backend/internal/db"
	"github.com/crowdfund/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
	maxPage         = 100000
)

type CampaignRepo struct {
	coll *mongo.Collection
}

func NewCampaignRepo(database *mongo.Database) *CampaignRepo {
	return &CampaignRepo{coll: database.Collection(db.CampaignsCollection)}
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.CampaignStatusOpen
	}

	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("campaign pId %d: %w", c.PID, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *CampaignRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CampaignRepo) GetByPID(ctx context.Context, pid int64) (*models.Campaign, error) {
	return r.findOne(ctx, bson.M{"pId": pid})
}

func (r *CampaignRepo) findOne(ctx context.Context, filter bson.M) (*models.Campaign, error) {
	var c models.Campaign
	err := r.coll.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type CampaignFilter struct {
	Search string
	Owner  string
	Status string
	Page   int
	Limit  int
}

// Normalize clamps paging to sane bounds. Pages start at 1.
func (f *CampaignFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > maxPage {
		f.Page = maxPage
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
}

func (f CampaignFilter) query() bson.M {
	q := bson.M{}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"category": pattern},
		}
	}
	if f.Owner != "" {
		q["owner"] = f.Owner
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

// List returns one page of campaigns, newest first, and the total match count.
func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.Campaign, int64, error) {
	f.Normalize()
	q := f.query()

	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	campaigns := []models.Campaign{}
	if err := cur.All(ctx, &campaigns); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// CampaignDetails holds the off-chain fields an owner may edit. Nil fields are left alone.
type CampaignDetails struct {
	Title       *string
	Description *string
	Message     *string
}

func (r *CampaignRepo) UpdateDetails(ctx context.Context, id primitive.ObjectID, d CampaignDetails) (*models.Campaign, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if d.Title != nil {
		set["title"] = *d.Title
	}
	if d.Description != nil {
		set["description"] = *d.Description
	}
	if d.Message != nil {
		set["message"] = *d.Message
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// IncCollected adds amount to amountCollected once per chain log. logKey is
// stored on the campaign in the same update, so a replayed log returns
// ErrAlreadyApplied.
func (r *CampaignRepo) IncCollected(ctx context.Context, pid int64, amount float64, logKey string) (*models.Campaign, error) {
	return r.applyOnce(ctx, pid, logKey, bson.M{"amountCollected": amount})
}

func (r *CampaignRepo) IncWithdrawn(ctx context.Context, pid int64, amount float64, logKey string) (*models.Campaign, error) {
	return r.applyOnce(ctx, pid, logKey, bson.M{"withdrawnAmount": amount})
}

func (r *CampaignRepo) applyOnce(ctx context.Context, pid int64, logKey string, inc bson.M) (*models.Campaign, error) {
	c, err := r.findOneAndUpdate(ctx,
		bson.M{"pId": pid, "appliedLogs": bson.M{"$ne": logKey}},
		bson.M{
			"$inc":      inc,
			"$addToSet": bson.M{"appliedLogs": logKey},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		})
	if !errors.Is(err, ErrNotFound) {
		return c, err
	}
	if _, err := r.GetByPID(ctx, pid); err != nil {
		return nil, err
	}
	return nil, ErrAlreadyApplied
}

func (r *CampaignRepo) SetStatus(ctx context.Context, pid int64, status string) (*models.Campaign, error) {
	return r.findOneAndUpdate(ctx, bson.M{"pId": pid}, bson.M{
		"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()},
	})
}

func (r *CampaignRepo) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Campaign, error) {
	var c models.Campaign
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
