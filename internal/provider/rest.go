package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/sethvargo/go-retry"
)

const retryBaseDelay = 500 * time.Millisecond

// restClient is the shared HTTP plumbing for provider integrations. Transient
// failures (network errors, 5xx) are retried with fibonacci backoff; 4xx maps
// to ErrRejected and is surfaced immediately.
type restClient struct {
	baseURL  string
	client   *http.Client
	logger   *slog.Logger
	maxRetry uint64
	headers  map[string]string
}

func newRESTClient(baseURL string, timeout time.Duration, maxRetry int, headers map[string]string, logger *slog.Logger) *restClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetry < 0 {
		maxRetry = 0
	}
	return &restClient{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		maxRetry: uint64(maxRetry),
		headers:  headers,
	}
}

// postJSON sends body and decodes the response into out (when non-nil).
func (c *restClient) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(c.maxRetry, retry.NewFibonacci(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Warn("provider request failed", "path", path, "error", err)
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrTransient, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			c.logger.Warn("provider returned server error", "path", path, "status", resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode))
		case resp.StatusCode >= 400:
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(detail))
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
		return nil
	})
}
