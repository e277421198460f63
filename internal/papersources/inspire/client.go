// Package inspire queries the InspireHEP literature API and maps its records to feed items.
package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/helixir/inspire-rss-service/internal/domain"
	"github.com/helixir/inspire-rss-service/internal/papersources"
)

const (
	// DefaultBaseURL is the InspireHEP literature search endpoint.
	DefaultBaseURL = "https://inspirehep.net/api/literature"

	// sourceName labels errors and logs.
	sourceName = "InspireHEP"

	maxResponseBytes  = 10 << 20
	maxErrorBodyBytes = 1 << 20
)

// Config holds configuration for the InspireHEP client. Timeouts, rate limits and
// retries belong to the shared papersources.HTTPClient.
type Config struct {
	// BaseURL is the literature search endpoint. Query parameters already present
	// on it are kept unless the caller overrides them.
	BaseURL string
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
}

// Client fetches literature search results from InspireHEP.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// NewWithHTTPClient creates a new InspireHEP client sharing the given HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search forwards params to the literature endpoint and decodes one result page.
// Every failure wraps domain.ErrUpstreamFetch.
func (c *Client) Search(ctx context.Context, params url.Values) (*SearchResponse, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, domain.UpstreamError("building search URL", err)
	}

	zerolog.Ctx(ctx).Info().Str("url", searchURL).Msg("fetching literature")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, domain.UpstreamError("creating request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.UpstreamError("executing request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, domain.UpstreamError("unexpected status", domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			string(body),
			nil,
		))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, domain.UpstreamError("decoding response", err)
	}

	return &searchResp, nil
}

// buildSearchURL merges params into the base URL's query. Values are percent-encoded
// by url.Values; a caller parameter replaces every base value of the same name.
func (c *Client) buildSearchURL(params url.Values) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	query := baseURL.Query()
	for key, values := range params {
		query.Del(key)
		for _, v := range values {
			query.Add(key, v)
		}
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}
