package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/strokelab/strokecoach/internal/httpc"
)

// Client is the HTTP client for the classification backend.
type Client struct {
	baseURL string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a new classification client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "classifier.client"),
	}, nil
}

// predictRequest is the wire format of the live prediction endpoint.
type predictRequest struct {
	Frames []string `json:"frames"`
}

// predictResponse mirrors the backend's prediction payload.
type predictResponse struct {
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// errorResponse mirrors the backend's error payload.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Classify sends the frame batch to /predict-live.
func (c *Client) Classify(ctx context.Context, frames [][]byte) (*Result, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	start := time.Now()

	payload := predictRequest{Frames: make([]string, len(frames))}
	for i, f := range frames {
		payload.Frames[i] = base64.StdEncoding.EncodeToString(f)
	}

	resp, err := c.post(ctx, "/predict-live", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("classifier: decode response: %w", err)
	}

	label := Label(result.Prediction)
	if !label.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrBadLabel, result.Prediction)
	}

	return &Result{
		Label:      label,
		Confidence: result.Confidence,
		Message:    result.Message,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Health checks the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("classifier: create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("classifier: health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// post marshals payload and performs the request with retries on
// retryable failures.
func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("classifier: marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("classifier: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("classifier: request failed: %w", err)
			c.logger.Warn("request failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if apiErr := c.retryableStatus(resp); apiErr != nil {
			lastErr = apiErr
			c.logger.Warn("retryable backend error",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// retryableStatus consumes and returns an APIError when the response
// status warrants a retry; otherwise it leaves the response intact.
func (c *Client) retryableStatus(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if !apiErr.IsRetryable() {
		return nil
	}

	var body errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		apiErr.Detail = body.Detail
	}
	resp.Body.Close()
	return apiErr
}

// parseError converts a non-OK response into an APIError.
func (c *Client) parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: resp.Status}

	var body errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Detail != "" {
		apiErr.Detail = body.Detail
	}
	return apiErr
}

// IsRecoverable reports whether the pipeline should keep running after
// err: every classification failure is recoverable except caller bugs
// like an empty batch.
func IsRecoverable(err error) bool {
	return !errors.Is(err, ErrNoFrames)
}

// Verify Client implements Classifier at compile time.
var _ Classifier = (*Client)(nil)
