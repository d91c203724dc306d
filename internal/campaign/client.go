package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crowdfund/backend/internal/models"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("campaign not found")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client talks to the crowdfunding REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int64           `json:"total"`
	Error string          `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*envelope, error) {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{Status: resp.StatusCode, Message: string(body)}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	return &env, nil
}

func (c *Client) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	env, err := c.get(ctx, "/campaigns/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var campaign models.Campaign
	if err := json.Unmarshal(env.Data, &campaign); err != nil {
		return nil, fmt.Errorf("decode campaign: %w", err)
	}
	return &campaign, nil
}

func (c *Client) GetDonation(ctx context.Context, id, address string) (float64, error) {
	env, err := c.get(ctx, "/campaigns/donations/"+url.PathEscape(id)+"/"+url.PathEscape(address), nil)
	if err != nil {
		return 0, err
	}
	var total float64
	if err := json.Unmarshal(env.Data, &total); err != nil {
		return 0, fmt.Errorf("decode donation: %w", err)
	}
	return total, nil
}

type ListQuery struct {
	Search string
	Owner  string
	Status string
	Page   int
	Limit  int
}

type Page struct {
	Campaigns []models.Campaign
	Page      int
	Limit     int
	Total     int64
}

// Pages is the number of pages needed for Total items.
func (p *Page) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

func (c *Client) ListCampaigns(ctx context.Context, q ListQuery) (*Page, error) {
	vals := url.Values{}
	if q.Search != "" {
		vals.Set("search", q.Search)
	}
	if q.Owner != "" {
		vals.Set("owner", q.Owner)
	}
	if q.Status != "" {
		vals.Set("status", q.Status)
	}
	if q.Page > 0 {
		vals.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}

	env, err := c.get(ctx, "/campaigns", vals)
	if err != nil {
		return nil, err
	}
	page := &Page{Page: env.Page, Limit: env.Limit, Total: env.Total}
	if err := json.Unmarshal(env.Data, &page.Campaigns); err != nil {
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}
	return page, nil
}
