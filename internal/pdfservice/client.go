// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfservice is the HTTP client for the external DOCX to PDF
// conversion service.
package pdfservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/internal/httputil"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// ErrNotConfigured is returned by New when the service has no URL or is
// disabled.
var ErrNotConfigured = errors.New("pdfservice: not configured")

// DefaultMethod is reported when the service omits conversion_method.
const DefaultMethod = "docx2pdf_exact"

const (
	healthTimeout          = 10 * time.Second
	defaultRateLimitWait   = 30 * time.Second
	defaultUnavailableWait = 60 * time.Second
	maxErrorBody           = 512
)

// Response is the result of a successful conversion.
type Response struct {
	Success          bool   `json:"success"`
	PDFData          string `json:"pdf_data"`
	Size             int    `json:"size"`
	ConversionMethod string `json:"conversion_method"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	Error            string `json:"error,omitempty"`
}

// PDF decodes the base64 payload.
func (r *Response) PDF() ([]byte, error) {
	if r.PDFData == "" {
		return nil, &Error{Code: CodeConversionFailed, Message: "response carries no pdf data"}
	}
	b, err := base64.StdEncoding.DecodeString(r.PDFData)
	if err != nil {
		return nil, &Error{Code: CodeConversionFailed, Message: "decoding pdf data", Err: err}
	}
	return b, nil
}

// wire form of Response; pointers tell absent fields from zero values.
type responseBody struct {
	Success          *bool  `json:"success"`
	PDFData          string `json:"pdf_data"`
	Size             int    `json:"size"`
	ConversionMethod string `json:"conversion_method"`
	ProcessingTimeMS *int64 `json:"processing_time_ms"`
	Error            string `json:"error"`
}

type requestBody struct {
	DOCXData string         `json:"docx_data"`
	Options  map[string]any `json:"options"`
}

// Client talks to one PDF service instance.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	http   *http.Client
	logger *zap.Logger

	// sleep waits between ConvertWithRetry attempts.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a client for cfg.
func New(cfg types.PDFServiceConfig, logger *zap.Logger) (*Client, error) {
	url := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if url == "" || !cfg.Enabled {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()

	c := &Client{
		baseURL:    url,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    backoff,
		http:       &http.Client{Transport: transport},
		logger:     logger.With(zap.String("pdf_service", url)),
		sleep:      sleepCtx,
	}
	c.logger.Info("pdf service client initialized")
	return c, nil
}

// URL returns the service base URL.
func (c *Client) URL() string { return c.baseURL }

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) policy() httputil.Policy {
	return httputil.Policy{
		MaxRetries: c.maxRetries,
		BaseDelay:  c.backoff,
		MaxDelay:   8 * c.backoff,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, &Error{Code: CodeUnknown, Message: "building request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// Health calls GET /health and returns the decoded body.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.policy())
	if err != nil {
		e := transportError("health check", err)
		c.logger.Error("pdf service health check failed", zap.Error(e))
		return nil, e
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e := &Error{Code: CodeHealthCheckFailed, Message: fmt.Sprintf("health check failed with status %d", resp.StatusCode)}
		c.logger.Error("pdf service unhealthy", zap.Int("status", resp.StatusCode))
		return nil, e
	}

	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, &Error{Code: CodeHealthCheckFailed, Message: "decoding health response", Err: err}
	}
	return health, nil
}

// Available reports whether the service passes a health check.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}

// Convert sends docx to POST /convert-pdf.
func (c *Client) Convert(ctx context.Context, docx []byte) (*Response, error) {
	if len(docx) == 0 {
		return nil, &Error{Code: CodeInvalidRequest, Message: "DOCX data is required"}
	}
	start := time.Now()

	body, err := json.Marshal(requestBody{
		DOCXData: base64.StdEncoding.EncodeToString(docx),
		Options:  map[string]any{},
	})
	if err != nil {
		return nil, &Error{Code: CodeUnknown, Message: "encoding request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodPost, "/convert-pdf", body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("sending pdf conversion request", zap.Int("docx_bytes", len(docx)))
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.policy())
	if err != nil {
		e := transportError("conversion", err)
		c.logger.Error("pdf conversion request failed", zap.Error(e))
		return nil, e
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, &Error{Code: CodeInvalidRequest, Message: "invalid request: " + readSnippet(resp.Body)}
	case http.StatusTooManyRequests:
		wait := retryAfter(resp.Header, defaultRateLimitWait)
		c.logger.Warn("pdf service rate limited", zap.Duration("retry_after", wait))
		return nil, &Error{Code: CodeRateLimited, Message: "rate limit exceeded", RetryAfter: wait}
	case http.StatusServiceUnavailable:
		wait := retryAfter(resp.Header, defaultUnavailableWait)
		c.logger.Warn("pdf service unavailable", zap.Duration("retry_after", wait))
		return nil, &Error{Code: CodeServiceUnavailable, Message: "service temporarily unavailable", RetryAfter: wait}
	default:
		return nil, &Error{
			Code:    CodeConversionFailed,
			Message: fmt.Sprintf("conversion failed with status %d: %s", resp.StatusCode, readSnippet(resp.Body)),
		}
	}

	var rb responseBody
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return nil, &Error{Code: CodeConversionFailed, Message: "decoding conversion response", Err: err}
	}

	out := &Response{
		Success:          rb.Success == nil || *rb.Success,
		PDFData:          rb.PDFData,
		Size:             rb.Size,
		ConversionMethod: rb.ConversionMethod,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Error:            rb.Error,
	}
	if rb.ProcessingTimeMS != nil {
		out.ProcessingTimeMS = *rb.ProcessingTimeMS
	}
	if out.ConversionMethod == "" {
		out.ConversionMethod = DefaultMethod
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return nil, &Error{Code: CodeConversionFailed, Message: msg}
	}

	c.logger.Info("pdf conversion succeeded",
		zap.String("method", out.ConversionMethod),
		zap.Int64("processing_ms", out.ProcessingTimeMS))
	return out, nil
}

// ConvertWithRetry calls Convert up to attempts times. INVALID_REQUEST is
// never retried. Between attempts it waits the server's Retry-After or
// backoff*2^(n-1). Zero attempts means the configured retry count; at least
// one attempt is always made. Exhausting more than one attempt returns
// MAX_RETRIES_EXCEEDED wrapping the last failure.
func (c *Client) ConvertWithRetry(ctx context.Context, docx []byte, attempts int) (*Response, error) {
	if attempts <= 0 {
		attempts = c.maxRetries
	}
	attempts = max(attempts, 1)

	var last error
	for n := 1; n <= attempts; n++ {
		c.logger.Debug("pdf conversion attempt", zap.Int("attempt", n), zap.Int("of", attempts))
		resp, err := c.Convert(ctx, docx)
		if err == nil {
			return resp, nil
		}
		last = err

		var e *Error
		if errors.As(err, &e) && e.Code == CodeInvalidRequest {
			return nil, err
		}
		if n == attempts {
			c.logger.Error("all pdf conversion attempts failed", zap.Int("attempts", attempts), zap.Error(err))
			break
		}

		delay := c.backoff * time.Duration(1<<(n-1))
		if e != nil && e.RetryAfter > 0 {
			delay = e.RetryAfter
		}
		c.logger.Warn("pdf conversion attempt failed, retrying",
			zap.Int("attempt", n), zap.Duration("delay", delay), zap.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	if attempts == 1 {
		return nil, last
	}
	return nil, &Error{Code: CodeMaxRetriesExceeded, Message: fmt.Sprintf("conversion failed after %d attempts", attempts), Err: last}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryAfter(h http.Header, def time.Duration) time.Duration {
	if d := httputil.RetryAfter(h); d > 0 {
		return d
	}
	return def
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}

// transportError classifies a failed round trip.
func transportError(op string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Code: CodeTimeout, Message: op + " timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Code: CodeUnknown, Message: op + " cancelled", Err: err}
	}
	return &Error{Code: CodeConnection, Message: "cannot connect to pdf service", Err: err}
}
