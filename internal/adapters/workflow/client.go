// Package workflow provides the HTTP client for the external workflow engine
// that performs anchor generation for dispatched jobs.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/linkforge/linkforge-api/internal/errors"
)

const (
	// secretHeader carries the shared secret both ways: outbound dispatch
	// requests include it, and the engine echoes it on result callbacks.
	secretHeader = "x-edge-secret"

	maxResponseBodyBytes = 4 * 1024 // keep stored upstream payloads small
)

// DispatchPayload is the request body sent to the engine's job webhook.
type DispatchPayload struct {
	JobID      string `json:"job_id"`
	ProjectID  string `json:"project_id"`
	Title      string `json:"title"`
	ArticleDoc string `json:"article_doc"`
	Status     string `json:"status"`
}

// DispatchResult captures the engine's immediate response to a dispatch.
type DispatchResult struct {
	StatusCode    int
	Body          string
	BodyTruncated bool
}

// Engine is the dispatch surface the job service depends on.
type Engine interface {
	Dispatch(ctx context.Context, payload DispatchPayload) (*DispatchResult, error)
}

// ClientOptions configures the engine client.
type ClientOptions struct {
	// WebhookURL is the engine's job intake endpoint.
	WebhookURL string
	// Secret is the shared secret sent on every dispatch.
	Secret string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client dispatches jobs to the workflow engine over HTTP.
type Client struct {
	webhookURL string
	secret     string
	http       *http.Client
	logger     *slog.Logger
}

// NewClient creates an engine client.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.WebhookURL == "" {
		return nil, errors.New("webhook URL is required")
	}
	if opts.Secret == "" {
		return nil, errors.New("engine secret is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		webhookURL: opts.WebhookURL,
		secret:     opts.Secret,
		http:       hc,
		logger:     logger,
	}, nil
}

// MustNewClient creates an engine client and panics on invalid options.
func MustNewClient(opts ClientOptions) *Client {
	c, err := NewClient(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// Dispatch POSTs the payload to the engine webhook. A non-2xx response is
// returned as an upstream failure with the truncated body attached so the
// caller can record it on the job.
func (c *Client) Dispatch(ctx context.Context, payload DispatchPayload) (*DispatchResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "engine dispatch failed")
	}

	respBody, truncated, readErr := readResponseBody(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}
	if readErr != nil {
		return nil, apperrors.Wrap(readErr, apperrors.ErrCodeUpstream, "read engine response")
	}

	result := &DispatchResult{
		StatusCode:    resp.StatusCode,
		Body:          respBody,
		BodyTruncated: truncated,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.WarnContext(ctx, "engine rejected dispatch",
			"job_id", payload.JobID, "status_code", resp.StatusCode)
		return result, apperrors.Upstreamf("engine returned status %d: %s", resp.StatusCode, respBody)
	}

	return result, nil
}

// Unconfigured is an Engine that rejects every dispatch. It stands in when
// no webhook URL is configured so the rest of the wiring stays uniform.
type Unconfigured struct{}

// Dispatch always fails with an upstream error.
func (Unconfigured) Dispatch(_ context.Context, _ DispatchPayload) (*DispatchResult, error) {
	return nil, apperrors.Upstream("workflow engine is not configured")
}

func readResponseBody(body io.Reader) (string, bool, error) {
	if body == nil {
		return "", false, nil
	}
	limited := io.LimitReader(body, maxResponseBodyBytes+1)
	data, readErr := io.ReadAll(limited)
	truncated := len(data) > maxResponseBodyBytes
	if truncated {
		data = data[:maxResponseBodyBytes]
		if _, drainErr := io.Copy(io.Discard, body); drainErr != nil && readErr == nil {
			readErr = drainErr
		}
	}
	return string(data), truncated, readErr
}
