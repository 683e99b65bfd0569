package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies this client to every provider
const DefaultUserAgent = "vigilancex-lookup/1.0"

// maxBodySize caps provider responses (2 MiB)
const maxBodySize = 2 << 20

// Config holds the HTTP settings shared by provider adapters
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RatePerMinute limits outbound requests; 0 disables limiting
	RatePerMinute int
	HTTPClient    *http.Client
}

// Client performs provider requests with a fixed identifying header
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Response is a fully read provider response
type Response struct {
	Status int
	Body   []byte
}

// NewClient creates a provider HTTP client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 1)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// BaseURL returns the provider base URL without trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET to baseURL+path
func (c *Client) Get(ctx context.Context, path string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, header)
}

// PostForm issues a form-encoded POST to baseURL+path
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, header)
}

// PostJSON issues a POST of v encoded as JSON to baseURL+path
func (c *Client) PostJSON(ctx context.Context, path string, v any, header http.Header) (*Response, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, header)
}

func (c *Client) do(req *http.Request, header http.Header) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// Expect returns an error unless the status is one of codes (200 when none given)
func (r *Response) Expect(codes ...int) error {
	if len(codes) == 0 {
		codes = []int{http.StatusOK}
	}
	for _, code := range codes {
		if r.Status == code {
			return nil
		}
	}
	return fmt.Errorf("API error: status %d", r.Status)
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Raw returns the body when it is valid JSON, nil otherwise
func (r *Response) Raw() json.RawMessage {
	if !json.Valid(r.Body) {
		return nil
	}
	raw := make(json.RawMessage, len(r.Body))
	copy(raw, r.Body)
	return raw
}

// NormalizeASN extracts "AS<number>" from strings like "AS15169 Google LLC"
func NormalizeASN(s string) string {
	var asn uint32
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "AS%d", &asn); err != nil || asn == 0 {
		return ""
	}
	return fmt.Sprintf("AS%d", asn)
}

// FormatASN renders a numeric ASN; 0 means unknown
func FormatASN(asn int) string {
	if asn <= 0 {
		return ""
	}
	return fmt.Sprintf("AS%d", asn)
}
