package openstates

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://v3.openstates.org"

// Includes enumerates the related sub-resources requested with every
// search, so summary resolution and record building see the full payload.
var Includes = []string{
	"actions",
	"sponsorships",
	"sources",
	"documents",
	"versions",
	"votes",
	"related_bills",
	"abstracts",
}

// Client searches bills on the OpenStates v3 API.
type Client interface {
	SearchBills(ctx context.Context, q SearchQuery) (*SearchResponse, error)
}

// SearchQuery holds the parameters of one GET /bills call.
type SearchQuery struct {
	Jurisdiction string
	Query        string
	UpdatedSince string // YYYY-MM-DD floor, optional
	Page         int    // 1-based; 0 means first page
	PerPage      int
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an OpenStates API client authenticated with the
// given key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchBills(ctx context.Context, q SearchQuery) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("jurisdiction", q.Jurisdiction)
	params.Set("q", q.Query)
	if q.UpdatedSince != "" {
		params.Set("updated_since", q.UpdatedSince)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	for _, inc := range Includes {
		params.Add("include", inc)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bills?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "openstates: create request")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "openstates: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openstates: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("openstates: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "openstates: unmarshal response")
	}

	return &result, nil
}
