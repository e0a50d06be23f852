// Package provider implements the HTTP client for the profile scraping
// provider and adapts it to the per-platform worker contract.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/growthloop/prospector-go/pkg/platform"
	"github.com/growthloop/prospector-go/pkg/proxy"
)

// Client handles provider API interactions. Requests are paced by a
// client-side limiter as a safety margin below the per-platform admission
// windows, and are routed through the proxy identity attached to the
// request context when one is present.
type Client struct {
	config  *Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// ClientOption customizes client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Tests use it to stub
// transport behavior.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.client = hc }
}

func NewClient(config *Config, opts ...ClientOption) *Client {
	c := &Client{
		config: config,
		client: &http.Client{
			Timeout:   config.RequestTimeout,
			Transport: newProxyTransport(),
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:  config.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newProxyTransport routes each request through the proxy identity carried
// on its context, falling back to a direct connection.
func newProxyTransport() *http.Transport {
	return &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if id, ok := proxy.FromContext(req.Context()); ok && !id.Direct() {
				return url.Parse(id.URL)
			}
			return nil, nil
		},
	}
}

type searchRequest struct {
	Platform      string   `json:"platform"`
	Keywords      []string `json:"keywords,omitempty"`
	MinFollowers  int      `json:"min_followers,omitempty"`
	MinEngagement float64  `json:"min_engagement,omitempty"`
	Count         int      `json:"count"`
}

type stubPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type profilePayload struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	DisplayName  string   `json:"display_name"`
	Bio          string   `json:"bio"`
	Keywords     []string `json:"keywords"`
	Followers    int      `json:"followers"`
	AvgLikes     int      `json:"avg_likes"`
	AvgComments  int      `json:"avg_comments"`
	PostsPerWeek float64  `json:"posts_per_week"`
}

// SearchProfiles asks the provider for profiles on one platform matching
// the criteria. Results are capped at criteria.MaxResults when set,
// otherwise the configured search count.
func (c *Client) SearchProfiles(ctx context.Context, p platform.Platform, criteria platform.Criteria) ([]platform.CandidateStub, error) {
	count := criteria.MaxResults
	if count <= 0 {
		count = c.config.SearchCount
	}

	c.logger.WithFields(logrus.Fields{
		"platform": p,
		"keywords": criteria.Keywords,
		"count":    count,
	}).Debug("Searching provider for profiles")

	reqBody := searchRequest{
		Platform:      p.String(),
		Keywords:      criteria.Keywords,
		MinFollowers:  criteria.MinFollowers,
		MinEngagement: criteria.MinEngagement,
		Count:         count,
	}

	resp, err := c.do(ctx, http.MethodPost, c.config.BaseURL+"/profiles/search", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var response struct {
		Data      []stubPayload `json:"data"`
		RequestID string        `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding search response: %w", err)
	}

	stubs := make([]platform.CandidateStub, len(response.Data))
	for i, item := range response.Data {
		stubs[i] = platform.CandidateStub{
			ID:       item.ID,
			Username: item.Username,
			Platform: p,
		}
	}

	c.logger.WithFields(logrus.Fields{
		"platform":   p,
		"found":      len(stubs),
		"request_id": response.RequestID,
	}).Debug("Provider search complete")

	return stubs, nil
}

// GetProfile hydrates one profile by provider id.
func (c *Client) GetProfile(ctx context.Context, p platform.Platform, id string) (*platform.Candidate, error) {
	endpoint := fmt.Sprintf("%s/profiles/%s/%s", c.config.BaseURL, url.PathEscape(p.String()), url.PathEscape(id))

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var response struct {
		Data profilePayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("error decoding profile response: %w", err)
	}

	return &platform.Candidate{
		ID:           response.Data.ID,
		Platform:     p,
		Username:     response.Data.Username,
		DisplayName:  response.Data.DisplayName,
		Bio:          response.Data.Bio,
		Keywords:     response.Data.Keywords,
		Followers:    response.Data.Followers,
		AvgLikes:     response.Data.AvgLikes,
		AvgComments:  response.Data.AvgComments,
		PostsPerWeek: response.Data.PostsPerWeek,
		DiscoveredAt: time.Now().UTC(),
	}, nil
}

// do paces, builds and executes one request. Transport failures come back
// as ConnectionError.
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Provider request failed")
		return nil, &ConnectionError{Err: err}
	}
	return resp, nil
}

// checkStatus maps non-OK responses to typed errors. 429 carries the
// provider's Retry-After hint when present.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == StatusRateLimit {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.logger.WithFields(logrus.Fields{
			"retry_after": retryAfter.String(),
		}).Warn("Provider rate limit exceeded")
		return NewRateLimitError(retryAfter, "")
	}
	c.logger.WithField("status_code", resp.StatusCode).Error("Unexpected provider status code")
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
	}
}

func parseRetryAfter(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
