package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/crowdfund/backend/internal/middleware"
	"github.com/crowdfund/backend/internal/models"
	"github.com/crowdfund/backend/internal/repositories"
	"github.com/crowdfund/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const ownerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type stubCampaigns struct {
	campaign *models.Campaign
	created  *services.CreateCampaignInput
	image    []byte

	historyLimit int
}

func (s *stubCampaigns) Get(_ context.Context, id string) (*models.Campaign, error) {
	switch id {
	case "3":
		return s.campaign, nil
	case "bad":
		return nil, services.ErrInvalidID
	}
	return nil, repositories.ErrNotFound
}

func (s *stubCampaigns) List(_ context.Context, f repositories.CampaignFilter) ([]models.Campaign, int64, error) {
	return []models.Campaign{*s.campaign}, 11, nil
}

func (s *stubCampaigns) DonationTotal(_ context.Context, _, funder string) (float64, error) {
	if _, err := services.NormalizeAddress(funder); err != nil {
		return 0, err
	}
	return 1.25, nil
}

func (s *stubCampaigns) History(_ context.Context, id string, limit int) ([]models.AuditLog, error) {
	if id != "3" {
		return nil, repositories.ErrNotFound
	}
	s.historyLimit = limit
	return []models.AuditLog{{ActorType: "indexer", Action: "campaign_funded", EntityType: "campaign"}}, nil
}

func (s *stubCampaigns) Create(_ context.Context, owner string, in services.CreateCampaignInput, image services.ImageUpload) (*models.Campaign, error) {
	s.created = &in
	s.image, _ = io.ReadAll(image.Body)
	return &models.Campaign{PID: in.PID, Owner: owner, Title: in.Title, Status: models.CampaignStatusOpen}, nil
}

func (s *stubCampaigns) Update(_ context.Context, actor, _ string, d repositories.CampaignDetails) (*models.Campaign, error) {
	if actor != ownerAddr {
		return nil, services.ErrNotOwner
	}
	c := *s.campaign
	if d.Title != nil {
		c.Title = *d.Title
	}
	return &c, nil
}

func newTestApp(stub *stubCampaigns, actor string) *fiber.App {
	h := NewCampaignHandler(stub, zap.NewNop())
	app := fiber.New()
	app.Use(middleware.RequestIDMiddleware())
	app.Get("/campaigns", h.ListCampaigns)
	app.Get("/campaigns/donations/:id/:address", h.GetDonation)
	app.Get("/campaigns/:id/history", h.GetHistory)
	app.Get("/campaigns/:id", h.GetCampaign)

	setActor := func(c *fiber.Ctx) error {
		c.Locals(middleware.CtxAddress, actor)
		return c.Next()
	}
	app.Post("/campaigns", setActor, middleware.ImageUpload("image", 1024), h.CreateCampaign)
	app.Put("/campaigns/:id", setActor, h.UpdateCampaign)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGetCampaign(t *testing.T) {
	stub := &stubCampaigns{campaign: &models.Campaign{PID: 3, Title: "Well", Donations: []models.Donation{}}}
	app := newTestApp(stub, ownerAddr)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/campaigns/3", http.StatusOK},
		{"/campaigns/4", http.StatusNotFound},
		{"/campaigns/bad", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/campaigns/3", nil), -1)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Well", data["title"])
	assert.Equal(t, []any{}, data["donations"])
}

func TestGetHistory(t *testing.T) {
	stub := &stubCampaigns{campaign: &models.Campaign{PID: 3}}
	app := newTestApp(stub, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/campaigns/3/history?limit=5", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, stub.historyLimit)
	data := decodeBody(t, resp)["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "campaign_funded", data[0].(map[string]any)["action"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/campaigns/9/history", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListCampaigns(t *testing.T) {
	app := newTestApp(&stubCampaigns{campaign: &models.Campaign{PID: 1}}, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/campaigns?search=well&page=2", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 2, body["page"])
	assert.EqualValues(t, 11, body["total"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/campaigns?status=Pending", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetDonation(t *testing.T) {
	app := newTestApp(&stubCampaigns{campaign: &models.Campaign{}}, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/campaigns/donations/3/"+ownerAddr, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.25, decodeBody(t, resp)["data"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/campaigns/donations/3/undefined", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func createRequest(t *testing.T, fields map[string]string, withImage bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withImage {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="image"; filename="roof.png"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("png-bytes"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/campaigns", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateCampaign(t *testing.T) {
	fields := map[string]string{
		"pId": "5", "title": "Roof", "desc": "Solar roof", "category": "Energy",
		"target": "10", "softcap": "3",
	}

	stub := &stubCampaigns{}
	app := newTestApp(stub, ownerAddr)

	resp, err := app.Test(createRequest(t, fields, true), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, stub.created)
	assert.Equal(t, int64(5), stub.created.PID)
	assert.Equal(t, 10.0, stub.created.Target)
	assert.Equal(t, "png-bytes", string(stub.image))

	t.Run("missing image", func(t *testing.T) {
		resp, err := app.Test(createRequest(t, fields, false), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		details := decodeBody(t, resp)["details"].(map[string]any)
		assert.Contains(t, details, "image")
	})

	t.Run("unknown field", func(t *testing.T) {
		extra := map[string]string{"owner": "0x1"}
		for k, v := range fields {
			extra[k] = v
		}
		resp, err := app.Test(createRequest(t, extra, true), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		details := decodeBody(t, resp)["details"].(map[string]any)
		assert.Contains(t, details, "owner")
	})
}

func TestUpdateCampaign(t *testing.T) {
	stub := &stubCampaigns{campaign: &models.Campaign{PID: 3, Title: "Well"}}

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPut, "/campaigns/3", strings.NewReader(`{"title":"Deep well"}`))
		r.Header.Set("Content-Type", "application/json")
		return r
	}

	resp, err := newTestApp(stub, ownerAddr).Test(req(), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "Deep well", data["title"])

	resp, err = newTestApp(stub, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8").Test(req(), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

type stubAuth struct{}

func (stubAuth) IssueNonce(_ context.Context, address string) (string, error) {
	if _, err := services.NormalizeAddress(address); err != nil {
		return "", err
	}
	return "Sign in to Crowdfund\nNonce: 1", nil
}

func (stubAuth) Verify(_ context.Context, _, signature string) (string, error) {
	if signature != "0xgood" {
		return "", services.ErrInvalidSignature
	}
	return "token", nil
}

func TestAuthHandler(t *testing.T) {
	h := NewAuthHandler(stubAuth{}, zap.NewNop())
	app := fiber.New()
	app.Post("/auth/nonce", h.Nonce)
	app.Post("/auth/verify", h.Verify)

	post := func(path, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusOK, post("/auth/nonce", `{"address":"`+ownerAddr+`"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post("/auth/nonce", `{"address":"0x1"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post("/auth/verify", `{"address":"`+ownerAddr+`"}`).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, post("/auth/verify", `{"address":"`+ownerAddr+`","signature":"0xbad"}`).StatusCode)

	resp := post("/auth/verify", `{"address":"`+strings.ToLower(ownerAddr)+`","signature":"0xgood"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, ownerAddr, data["address"])
}
