// Package httpclient provides the HTTP client used by the model providers.
// Requests carry the W3C trace context of their context.Context and may be
// retried on transport errors or 5xx responses.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/persona-assistant/pkg/utils/json"
)

// Client is a wrapper around http.Client with retry and tracing support.
type Client struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a new HTTP client wrapper.
// maxRetries of zero means every request is attempted exactly once.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// DoRequest executes an HTTP request, retrying transport errors and 5xx
// responses with a linear backoff. The body is buffered so it can be resent.
func (c *Client) DoRequest(req *http.Request) (*http.Response, error) {
	c.injectTraceContext(req)

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = req.Body.Close()
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode < http.StatusInternalServerError {
				return resp, nil
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error, status code %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if i < c.maxRetries {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(i+1) * c.backoff):
			}
		}
	}
	return nil, lastErr
}

// DoJSON executes a request and decodes a JSON response into v.
// Status codes of 400 and above are returned as errors carrying the body.
func (c *Client) DoJSON(req *http.Request, v any) error {
	resp, err := c.DoRequest(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// PostJSON marshals in, posts it to url and decodes the reply into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.DoJSON(req, out)
}

// GetJSON issues a GET request and decodes the reply into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.DoJSON(req, out)
}

// injectTraceContext 将 W3C Trace Context 头注入到 HTTP 请求中。
// 请求或全局传播器为空时跳过。
func (c *Client) injectTraceContext(req *http.Request) {
	if req == nil {
		return
	}

	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return
	}
	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}
