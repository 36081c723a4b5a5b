// Package crm provides the client for the downstream lead-intake API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultSource is the source identifier sent when a row has no mapped
// source column.
const DefaultSource = "Google Sheet"

// Client defines the lead relay operation the sync engine depends on.
type Client interface {
	// SubmitLead posts one lead to the intake endpoint, authenticating with
	// the tenant's key. A nil error with a non-success Status means the
	// endpoint rejected the lead; a non-nil error means the call itself
	// failed.
	SubmitLead(ctx context.Context, payload LeadPayload, tenantKey string) (*SubmitResult, error)
}

// LeadPayload is the intake request body.
type LeadPayload struct {
	Para LeadPara `json:"para"`
}

// LeadPara carries the lead attributes the intake endpoint expects.
type LeadPara struct {
	CustName      string `json:"cust_name"`
	CustEmail     string `json:"cust_email"`
	PhoneNo       string `json:"phone_no"`
	SourceID      string `json:"source_id"`
	GoogleSheetID string `json:"google_sheet_id"`
}

// SubmitResult is the parsed intake response.
type SubmitResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Success reports whether the endpoint accepted the lead.
func (r *SubmitResult) Success() bool {
	return r != nil && r.Status == "success"
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the intake endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAuthHeader overrides the header name carrying the tenant key.
func WithAuthHeader(name string) Option {
	return func(c *httpClient) {
		if name != "" {
			c.authHeader = name
		}
	}
}

// WithRateLimit sets a per-second rate limit for intake calls. A burst
// equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	baseURL    string
	authHeader string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a lead-intake client for the given endpoint.
func NewClient(endpoint string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    endpoint,
		authHeader: "X-Account-Key",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes the request with exponential backoff on transient
// failures (429, 500, 502, 503). The request body is re-marshaled per
// attempt from payload.
func (c *httpClient) retryDo(ctx context.Context, body []byte, tenantKey string) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, 0, eris.Wrap(err, "crm: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(c.authHeader, tenantKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "crm: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("crm: status %d: %s", resp.StatusCode, string(respBody))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return respBody, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) SubmitLead(ctx context.Context, payload LeadPayload, tenantKey string) (*SubmitResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crm: rate limit")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "crm: marshal payload")
	}

	respBody, statusCode, err := c.retryDo(ctx, body, tenantKey)
	if err != nil {
		return nil, eris.Wrap(err, "crm: submit lead")
	}

	if statusCode < 200 || statusCode >= 300 {
		// Surface the endpoint's own message when the body carries one.
		var result SubmitResult
		if jsonErr := json.Unmarshal(respBody, &result); jsonErr == nil && result.Message != "" {
			return nil, eris.Errorf("crm: status %d: %s", statusCode, result.Message)
		}
		return nil, eris.Errorf("crm: unexpected status %d: %s", statusCode, string(respBody))
	}

	var result SubmitResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "crm: unmarshal response")
	}
	return &result, nil
}
