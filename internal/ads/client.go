package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/ppc-analyzer/internal/pkg/httpretry"
)

// ClientConfig holds the settings for the provider HTTP client.
type ClientConfig struct {
	BaseURL          string
	DeveloperToken   string
	CustomerID       string
	MaxIDsPerRequest int
}

// Client is the HTTP implementation of the provider boundary. It exposes
// paginated listing per category; authentication, transport retries, and
// quota negotiation details stay behind this type.
type Client struct {
	baseURL          string
	developerToken   string
	customerID       string
	maxIDsPerRequest int
	httpClient       httpretry.HTTPDoer
}

// NewClient creates a provider client with a retrying HTTP transport.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		developerToken:   cfg.DeveloperToken,
		customerID:       cfg.CustomerID,
		maxIDsPerRequest: cfg.MaxIDsPerRequest,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: 60 * time.Second,
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// ListPage fetches one page of records for a category. Page requests above
// the configured identifier cap are rejected before any network call.
func (c *Client) ListPage(ctx context.Context, category Category, scope Scope, pageSize, offset int) (Page, error) {
	if c.maxIDsPerRequest > 0 && pageSize > c.maxIDsPerRequest {
		return Page{}, &TooManyIdentifiersError{Requested: pageSize, Max: c.maxIDsPerRequest}
	}

	params := url.Values{}
	params.Set("start_date", scope.StartDate.Format("2006-01-02"))
	params.Set("end_date", scope.EndDate.Format("2006-01-02"))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("offset", strconv.Itoa(offset))
	if len(scope.CampaignIDs) > 0 {
		params.Set("campaign_ids", strings.Join(scope.CampaignIDs, ","))
	}
	if len(scope.AdGroupIDs) > 0 {
		params.Set("ad_group_ids", strings.Join(scope.AdGroupIDs, ","))
	}

	endpoint := fmt.Sprintf("/v1/customers/%s/%s?%s", url.PathEscape(scope.CustomerID), category, params.Encode())
	body, err := c.doRequest(ctx, http.MethodGet, endpoint)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return Page{}, fmt.Errorf("failed to parse %s page: %w", category, err)
	}
	for i := range page.Records {
		page.Records[i].Category = category
	}
	return page, nil
}

// doRequest performs an authenticated request against the provider API.
func (c *Client) doRequest(ctx context.Context, method, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Developer-Token", c.developerToken)
	req.Header.Set("Login-Customer-Id", c.customerID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: retryAfterFrom(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func retryAfterFrom(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
