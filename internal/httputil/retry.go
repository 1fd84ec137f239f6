// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the service clients.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Policy controls retry behavior. Zero fields take the defaults.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt (default 3).
	MaxRetries int

	// BaseDelay is the first backoff; each retry doubles it (default 1s).
	BaseDelay time.Duration

	// MaxDelay caps any single wait, including Retry-After (default 60s).
	MaxDelay time.Duration
}

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 60 * time.Second
)

func (p Policy) withDefaults() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// Retryable reports whether status is worth another attempt.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryAfter parses a Retry-After header given in seconds. It returns
// zero when the header is absent or not a number of seconds.
func RetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// DoWithRetry executes an HTTP request and retries on 429 and 5xx gateway
// statuses with exponential backoff: BaseDelay * 2^attempt, or the
// Retry-After header when the server sends one. Waits are capped at
// MaxDelay.
//
// Response bodies are drained and closed before retrying, and request
// bodies are rewound through GetBody. If the context is cancelled during
// a wait the function returns ctx.Err(). After exhausting retries the
// last response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Policy) (*http.Response, error) {
	policy = policy.withDefaults()

	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			r.Body = body
		}

		resp, err := client.Do(r)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= policy.MaxRetries {
			return resp, nil
		}

		wait := RetryAfter(resp.Header)
		if wait == 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * policy.BaseDelay
		}
		wait = min(wait, policy.MaxDelay)

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
