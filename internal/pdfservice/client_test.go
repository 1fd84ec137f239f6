// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(url string) types.PDFServiceConfig {
	return types.PDFServiceConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 2 * time.Second, UserAgent: "test"},
		URL:        url + "/",
		Enabled:    true,
		MaxRetries: 1,
		Backoff:    time.Millisecond,
	}
}

// newClient returns a client whose retry sleeps are recorded, not slept.
func newClient(t *testing.T, url string) (*Client, *[]time.Duration) {
	t.Helper()
	c, err := New(testConfig(url), nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.PDFServiceConfig
		wantURL string
		wantErr error
	}{
		{"trims trailing slash", types.PDFServiceConfig{URL: "https://pdf.example.org/", Enabled: true}, "https://pdf.example.org", nil},
		{"empty url", types.PDFServiceConfig{Enabled: true}, "", ErrNotConfigured},
		{"disabled", types.PDFServiceConfig{URL: "https://pdf.example.org", Enabled: false}, "", ErrNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer c.Close()
			assert.Equal(t, tt.wantURL, c.URL())
		})
	}
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"pdf"}`))
	}))
	defer ts.Close()
	c, _ := newClient(t, ts.URL)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h["status"])
	assert.True(t, c.Available(context.Background()))
}

func TestHealthFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()
	c, _ := newClient(t, ts.URL)

	_, err := c.Health(context.Background())
	assert.Equal(t, CodeHealthCheckFailed, CodeOf(err))
	assert.False(t, c.Available(context.Background()))

	// A closed server refuses connections.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	c2, _ := newClient(t, deadURL)
	_, err = c2.Health(context.Background())
	assert.Equal(t, CodeConnection, CodeOf(err))
}

func TestConvert(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/convert-pdf", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("docx")), body["docx_data"])
		assert.Equal(t, map[string]any{}, body["options"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"pdf_data": base64.StdEncoding.EncodeToString(pdf),
			"size":     len(pdf),
		})
	}))
	defer ts.Close()
	c, _ := newClient(t, ts.URL)

	resp, err := c.Convert(context.Background(), []byte("docx"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMethod, resp.ConversionMethod)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMS, int64(0))
	got, err := resp.PDF()
	require.NoError(t, err)
	assert.Equal(t, pdf, got)
}

func TestConvertStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		body       string
		wantCode   Code
		wantWait   time.Duration
	}{
		{"bad request", http.StatusBadRequest, "", "missing docx", CodeInvalidRequest, 0},
		{"rate limited default wait", http.StatusTooManyRequests, "", "", CodeRateLimited, 30 * time.Second},
		{"rate limited header", http.StatusTooManyRequests, "0", "", CodeRateLimited, 30 * time.Second},
		{"unavailable default wait", http.StatusServiceUnavailable, "", "", CodeServiceUnavailable, 60 * time.Second},
		{"server error", http.StatusInternalServerError, "", "boom", CodeConversionFailed, 0},
		{"unexpected status", http.StatusTeapot, "", "", CodeConversionFailed, 0},
		{"success false", http.StatusOK, "", `{"success":false,"error":"corrupt"}`, CodeConversionFailed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()
			c, _ := newClient(t, ts.URL)

			_, err := c.Convert(context.Background(), []byte("docx"))
			require.Error(t, err)
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantWait, e.RetryAfter)
		})
	}
}

func TestConvertEmpty(t *testing.T) {
	c, _ := newClient(t, "http://127.0.0.1:1")
	_, err := c.Convert(context.Background(), nil)
	assert.Equal(t, CodeInvalidRequest, CodeOf(err))
}

func TestConvertTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c, _ := newClient(t, ts.URL)
	c.timeout = 50 * time.Millisecond
	_, err := c.Convert(context.Background(), []byte("docx"))
	assert.Equal(t, CodeTimeout, CodeOf(err))
}

func TestConvertWithRetry(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1, 2:
			// Transport retry absorbs the first 503; the second reaches Convert.
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"pdf_data":"JVBERg==","conversion_method":"libreoffice"}`))
		}
	}))
	defer ts.Close()
	c, slept := newClient(t, ts.URL)
	c.backoff = time.Microsecond

	resp, err := c.ConvertWithRetry(context.Background(), []byte("docx"), 3)
	require.NoError(t, err)
	assert.Equal(t, "libreoffice", resp.ConversionMethod)
	assert.Equal(t, []time.Duration{7 * time.Second}, *slept)
}

func TestConvertWithRetryStopsOnInvalidRequest(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()
	c, slept := newClient(t, ts.URL)

	_, err := c.ConvertWithRetry(context.Background(), []byte("docx"), 5)
	assert.Equal(t, CodeInvalidRequest, CodeOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *slept)
}

func TestConvertWithRetryExhausted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()
	c, slept := newClient(t, ts.URL)
	c.backoff = 100 * time.Millisecond

	_, err := c.ConvertWithRetry(context.Background(), []byte("docx"), 3)
	assert.Equal(t, CodeMaxRetriesExceeded, CodeOf(err))
	var last *Error
	require.ErrorAs(t, errors.Unwrap(err), &last)
	assert.Equal(t, CodeConversionFailed, last.Code)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)

	// A single attempt reports the service's own failure.
	_, err = c.ConvertWithRetry(context.Background(), []byte("docx"), 1)
	assert.Equal(t, CodeConversionFailed, CodeOf(err))
}

func TestConvertWithRetryNoAttempts(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"pdf_data":"JVBERg==","conversion_method":"libreoffice"}`))
	}))
	defer ts.Close()
	c, slept := newClient(t, ts.URL)
	c.maxRetries = 0

	for _, attempts := range []int{0, -1} {
		resp, err := c.ConvertWithRetry(context.Background(), []byte("docx"), attempts)
		require.NoError(t, err)
		assert.Equal(t, "libreoffice", resp.ConversionMethod)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Empty(t, *slept)
}

func TestResponsePDF(t *testing.T) {
	_, err := (&Response{}).PDF()
	assert.Equal(t, CodeConversionFailed, CodeOf(err))

	_, err = (&Response{PDFData: "!!!"}).PDF()
	assert.Equal(t, CodeConversionFailed, CodeOf(err))
}
