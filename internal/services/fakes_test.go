package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/crowdfund/backend/internal/events"
	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCampaigns struct {
	byID      map[primitive.ObjectID]*models.Campaign
	createErr error

	// incFailures makes the next n IncCollected calls fail.
	incFailures int
}

func newFakeCampaigns(cs ...*models.Campaign) *fakeCampaigns {
	f := &fakeCampaigns{byID: map[primitive.ObjectID]*models.Campaign{}}
	for _, c := range cs {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCampaigns) Create(_ context.Context, c *models.Campaign) error {
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = primitive.NewObjectID()
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCampaigns) GetByID(_ context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaigns) GetByPID(ctx context.Context, pid int64) (*models.Campaign, error) {
	for id, c := range f.byID {
		if c.PID == pid {
			return f.GetByID(ctx, id)
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCampaigns) List(_ context.Context, _ repositories.CampaignFilter) ([]models.Campaign, int64, error) {
	out := []models.Campaign{}
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCampaigns) UpdateDetails(ctx context.Context, id primitive.ObjectID, d repositories.CampaignDetails) (*models.Campaign, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if d.Title != nil {
		c.Title = *d.Title
	}
	if d.Description != nil {
		c.Description = *d.Description
	}
	if d.Message != nil {
		c.Message = *d.Message
	}
	return f.GetByID(ctx, id)
}

func (f *fakeCampaigns) mutate(ctx context.Context, pid int64, fn func(*models.Campaign)) (*models.Campaign, error) {
	for id, c := range f.byID {
		if c.PID == pid {
			fn(c)
			return f.GetByID(ctx, id)
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCampaigns) applyOnce(ctx context.Context, pid int64, key string, fn func(*models.Campaign)) (*models.Campaign, error) {
	c, err := f.GetByPID(ctx, pid)
	if err != nil {
		return nil, err
	}
	for _, k := range c.AppliedLogs {
		if k == key {
			return nil, repositories.ErrAlreadyApplied
		}
	}
	return f.mutate(ctx, pid, func(c *models.Campaign) {
		fn(c)
		c.AppliedLogs = append(c.AppliedLogs, key)
	})
}

func (f *fakeCampaigns) IncCollected(ctx context.Context, pid int64, amount float64, key string) (*models.Campaign, error) {
	if f.incFailures > 0 {
		f.incFailures--
		return nil, errors.New("connection reset")
	}
	return f.applyOnce(ctx, pid, key, func(c *models.Campaign) { c.AmountCollected += amount })
}

func (f *fakeCampaigns) IncWithdrawn(ctx context.Context, pid int64, amount float64, key string) (*models.Campaign, error) {
	return f.applyOnce(ctx, pid, key, func(c *models.Campaign) { c.WithdrawnAmount += amount })
}

func (f *fakeCampaigns) SetStatus(ctx context.Context, pid int64, status string) (*models.Campaign, error) {
	return f.mutate(ctx, pid, func(c *models.Campaign) { c.Status = status })
}

type donationKey struct {
	tx    string
	index uint
}

type fakeDonations struct {
	items []*models.Donation
	seen  map[donationKey]bool
}

func newFakeDonations() *fakeDonations {
	return &fakeDonations{seen: map[donationKey]bool{}}
}

func (f *fakeDonations) Insert(_ context.Context, d *models.Donation) (bool, error) {
	k := donationKey{d.TxHash, d.LogIndex}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	f.items = append(f.items, d)
	return true, nil
}

func (f *fakeDonations) ListByCampaign(_ context.Context, id primitive.ObjectID) ([]models.Donation, error) {
	out := []models.Donation{}
	for _, d := range f.items {
		if d.Campaign == id {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDonations) TotalByFunder(_ context.Context, id primitive.ObjectID, funder string) (float64, error) {
	var total float64
	for _, d := range f.items {
		if d.Campaign == id && d.Funder == funder && !d.Refunded {
			total += d.FundedAmount
		}
	}
	return total, nil
}

func (f *fakeDonations) MarkRefunded(_ context.Context, id primitive.ObjectID, funder string) (int64, error) {
	var n int64
	for _, d := range f.items {
		if d.Campaign == id && d.Funder == funder && !d.Refunded {
			d.Refunded = true
			n++
		}
	}
	return n, nil
}

type fakeImages struct {
	stored  map[string][]byte
	deleted []string
}

func (f *fakeImages) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.stored[key] = b
	return "http://img/" + key, nil
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.stored, key)
	return nil
}

type fakeAudit struct {
	entries []models.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, e models.AuditLog) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) ListByEntity(_ context.Context, entityType, entityID string, limit int) ([]models.AuditLog, error) {
	out := []models.AuditLog{}
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.entries[i]
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type fakeNonces struct {
	m map[string]string
}

func (f *fakeNonces) Save(_ context.Context, address, message string, _ time.Duration) error {
	if f.m == nil {
		f.m = map[string]string{}
	}
	f.m[address] = message
	return nil
}

func (f *fakeNonces) Consume(_ context.Context, address string) (string, error) {
	msg, ok := f.m[address]
	if !ok {
		return "", repositories.ErrNotFound
	}
	delete(f.m, address)
	return msg, nil
}
