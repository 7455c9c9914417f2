// Package importer pushes converted books to the content-management import
// API.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

const MaxRetries = 3

// RetryableError marks a response worth retrying (429 or 5xx).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("import api status %d: %s", e.StatusCode, e.Message)
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

// Client communicates with the import HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:     log,
		backoff: Backoff,
	}
}

// Manifest is the body of PUT /books/{bookid}, sent after both data sets.
type Manifest struct {
	BookID      string `json:"bookid"`
	Title       string `json:"title,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Digest      string `json:"digest"`
	Chunks      int    `json:"chunks"`
	Annotations int    `json:"annotations"`
}

// Publish uploads the encoded chunk and annotation arrays for a book, then
// its manifest. Each request is retried on retryable failures.
func (c *Client) Publish(ctx context.Context, m Manifest, chunks, annotations []byte) error {
	base := "/books/" + url.PathEscape(m.BookID)
	if err := c.putWithRetry(ctx, base+"/chunks", chunks); err != nil {
		return fmt.Errorf("publish chunks: %w", err)
	}
	if err := c.putWithRetry(ctx, base+"/annotations", annotations); err != nil {
		return fmt.Errorf("publish annotations: %w", err)
	}
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := c.putWithRetry(ctx, base, body); err != nil {
		return fmt.Errorf("publish manifest: %w", err)
	}
	return nil
}

func (c *Client) putWithRetry(ctx context.Context, path string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		lastErr = c.put(ctx, path, body)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		c.log.Warn("retryable import error", "path", path, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) put(ctx context.Context, path string, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return fmt.Errorf("put %s: status %d: %s", path, resp.StatusCode, string(respBody))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
