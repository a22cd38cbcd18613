package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/adrata/backend/pkg/errors"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultRequestsPerMinute = 60
	maxErrorBody             = 512
)

// ClientOptions configures an HTTP-backed provider
type ClientOptions struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// apiClient is the transport shared by the vendor providers: it rate limits,
// attaches the auth header and maps HTTP failures onto typed errors.
type apiClient struct {
	provider   string
	baseURL    string
	authHeader string
	apiKey     string
	http       *http.Client
	limiter    *rate.Limiter
}

func newAPIClient(provider, authHeader string, opts ClientOptions) *apiClient {
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &apiClient{
		provider:   provider,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		authHeader: authHeader,
		apiKey:     opts.APIKey,
		http:       client,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// do sends a request and returns the raw body of a 2xx response.
func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.authHeader != "" {
		value := c.apiKey
		if c.authHeader == "Authorization" {
			value = "Bearer " + c.apiKey
		}
		req.Header.Set(c.authHeader, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.provider, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, c.statusError(resp, data)
}

func (c *apiClient) statusError(resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewRateLimitError(c.provider, parseRetryAfter(resp.Header.Get("Retry-After")))
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			msg = "invalid or missing API key"
		}
	default:
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
	}
	return apperrors.NewProviderError(c.provider, resp.StatusCode, msg)
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func (c *apiClient) getJSON(ctx context.Context, path string, out interface{}) ([]byte, error) {
	data, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", c.provider, err)
		}
	}
	return data, nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, payload, out interface{}) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(buf), "application/json")
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", c.provider, err)
		}
	}
	return data, nil
}
