// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/ieee-docgen/internal/generator"
	"github.com/pdiddy/ieee-docgen/internal/limits"
	"github.com/pdiddy/ieee-docgen/internal/store"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- fakes and helpers ---

type fakeLedger struct {
	mu      sync.Mutex
	rows    []types.Download
	failing bool
}

func (f *fakeLedger) Record(_ context.Context, d types.Download) (types.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return types.Download{}, errors.New("disk full")
	}
	d.ID = "dl-" + string(rune('a'+len(f.rows)))
	f.rows = append(f.rows, d)
	return d, nil
}

func (f *fakeLedger) Get(_ context.Context, id string) (types.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.ID == id {
			return d, nil
		}
	}
	return types.Download{}, store.ErrNotFound
}

func (f *fakeLedger) Ping(context.Context) error {
	if f.failing {
		return errors.New("disk full")
	}
	return nil
}

// panicLedger panics on lookup.
type panicLedger struct{ fakeLedger }

func (*panicLedger) Get(context.Context, string) (types.Download, error) { panic("boom") }

type fakeChecker bool

func (f fakeChecker) Available(context.Context) bool { return bool(f) }

func newServer(t *testing.T, cfg types.ServerConfig) (*Server, *fakeLedger) {
	t.Helper()
	ledger := &fakeLedger{}
	gen := generator.New(types.PDFConfig{Engine: types.EngineNative}, generator.Deps{})
	return New(Options{Config: cfg, Generator: gen, Ledger: ledger, Version: "test"}), ledger
}

func sampleBody(extra map[string]any) map[string]any {
	body := map[string]any{
		"title":    "Handler Study",
		"authors":  []map[string]any{{"name": "Ada Lovelace"}},
		"abstract": "Handlers.",
		"sections": []map[string]any{{
			"title":         "Intro",
			"contentBlocks": []map[string]any{{"type": "text", "content": "Body text."}},
		}},
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func fileResponse(t *testing.T, rec *httptest.ResponseRecorder) types.FileResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fr types.FileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fr))
	return fr
}

func errorResponse(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var er types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	assert.False(t, er.Success)
	return er
}

// --- dispatch ---

func TestDispatch(t *testing.T) {
	tests := []struct {
		name          string
		extra         map[string]any
		wantType      string
		wantRequested string
		wantMethod    string
	}{
		{"pdf", map[string]any{"format": "pdf"}, "pdf", "pdf", "native_gofpdf"},
		{"docx download", map[string]any{"format": "docx", "action": "download"}, "docx", "docx", ""},
		{"docx without download previews", map[string]any{"format": "docx"}, "pdf", "preview", "native_gofpdf"},
		{"html", map[string]any{"format": "html"}, "html", "html", ""},
		{"default previews", nil, "pdf", "preview", "native_gofpdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newServer(t, types.ServerConfig{})
			fr := fileResponse(t, do(t, s.Handler(), http.MethodPost, "/api/document-generator", sampleBody(tt.extra), nil))

			assert.True(t, fr.Success)
			assert.Equal(t, tt.wantType, fr.FileType)
			assert.Equal(t, tt.wantType, fr.ActualFormat)
			assert.Equal(t, tt.wantRequested, fr.RequestedFormat)
			assert.Equal(t, tt.wantMethod, fr.ConversionMethod)

			data, err := base64.StdEncoding.DecodeString(fr.FileData)
			require.NoError(t, err)
			assert.Equal(t, len(data), fr.FileSize)
			assert.NotEmpty(t, fr.DocumentID)
		})
	}
}

func TestDispatchTitleRequired(t *testing.T) {
	s, ledger := newServer(t, types.ServerConfig{})
	rec := do(t, s.Handler(), http.MethodPost, "/api/document-generator",
		sampleBody(map[string]any{"title": "  ", "format": "pdf"}), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	er := errorResponse(t, rec)
	assert.Equal(t, "Title is required", er.Error)
	assert.Equal(t, "VALIDATION_ERROR", er.ErrorType)
	assert.Empty(t, ledger.rows)
}

func TestDispatchDOCXToPDF(t *testing.T) {
	s, _ := newServer(t, types.ServerConfig{})
	h := s.Handler()

	docx := fileResponse(t, do(t, h, http.MethodPost, "/api/generate/docx", sampleBody(nil), nil))

	fr := fileResponse(t, do(t, h, http.MethodPost, "/api/document-generator",
		map[string]any{"format": "docx-to-pdf", "docx_data": docx.FileData}, nil))
	assert.Equal(t, "pdf", fr.FileType)
	assert.Equal(t, "docx-to-pdf", fr.RequestedFormat)
	assert.Equal(t, generator.MethodDirect, fr.ConversionMethod)
	assert.GreaterOrEqual(t, fr.PageCount, 1)

	rec := do(t, h, http.MethodPost, "/api/document-generator", map[string]any{"format": "docx-to-pdf"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/convert/docx-to-pdf",
		map[string]any{"docx_data": base64.StdEncoding.EncodeToString([]byte("not a docx"))}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorResponse(t, rec).ErrorType)
}

// --- focused routes ---

func TestFocusedRoutes(t *testing.T) {
	tests := []struct {
		path      string
		wantType  string
		requested string
	}{
		{"/api/generate/docx", "docx", "docx"},
		{"/api/generate/pdf", "pdf", "pdf"},
		{"/api/generate/html", "html", "html"},
		{"/api/preview", "pdf", "preview"},
	}
	s, _ := newServer(t, types.ServerConfig{})
	h := s.Handler()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fr := fileResponse(t, do(t, h, http.MethodPost, tt.path, sampleBody(nil), nil))
			assert.Equal(t, tt.wantType, fr.FileType)
			assert.Equal(t, tt.requested, fr.RequestedFormat)
		})
	}
}

func TestBadBodies(t *testing.T) {
	s, _ := newServer(t, types.ServerConfig{MaxBodyBytes: 1 << 10})
	h := s.Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantType   string
	}{
		{"empty", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed", "{not json", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"too large", `{"title":"` + strings.Repeat("x", 2<<10) + `"}`, http.StatusRequestEntityTooLarge, "FILE_SIZE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/generate/pdf", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, errorResponse(t, rec).ErrorType)
		})
	}
}

// --- ledger ---

func TestRecordsDownload(t *testing.T) {
	s, ledger := newServer(t, types.ServerConfig{})
	fr := fileResponse(t, do(t, s.Handler(), http.MethodPost, "/api/generate/pdf", sampleBody(nil), map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
		"User-Agent":      "paper-client/1.0",
	}))

	require.Len(t, ledger.rows, 1)
	d := ledger.rows[0]
	assert.Equal(t, fr.DocumentID, d.ID)
	assert.Equal(t, "Handler Study", d.DocumentTitle)
	assert.Equal(t, "pdf", d.FileFormat)
	assert.Equal(t, fr.FileSize, d.FileSize)
	assert.Equal(t, "203.0.113.7", d.IPAddress)
	assert.Equal(t, "paper-client/1.0", d.UserAgent)
	assert.Equal(t, "native_gofpdf", d.Metadata["conversion_method"])
}

func TestLedgerFailureDoesNotFailRequest(t *testing.T) {
	s, ledger := newServer(t, types.ServerConfig{})
	ledger.failing = true

	fr := fileResponse(t, do(t, s.Handler(), http.MethodPost, "/api/generate/docx", sampleBody(nil), nil))
	assert.True(t, fr.Success)
	assert.Empty(t, fr.DocumentID)
}

func TestDownload(t *testing.T) {
	s, ledger := newServer(t, types.ServerConfig{})
	h := s.Handler()
	fr := fileResponse(t, do(t, h, http.MethodPost, "/api/generate/html", sampleBody(nil), nil))

	rec := do(t, h, http.MethodGet, "/api/downloads/"+fr.DocumentID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Download types.Download `json:"download"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ledger.rows[0].ID, got.Download.ID)

	rec = do(t, h, http.MethodGet, "/api/downloads/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND_ERROR", errorResponse(t, rec).ErrorType)

	noLedger := New(Options{})
	rec = do(t, noLedger.Handler(), http.MethodGet, "/api/downloads/x", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- validation and health ---

func TestValidateFile(t *testing.T) {
	gen := generator.New(types.PDFConfig{}, generator.Deps{})
	s := New(Options{Generator: gen})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/validate-file", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_response_size"`)

	rec = do(t, h, http.MethodPost, "/api/validate-file", map[string]any{
		"file_data": base64.StdEncoding.EncodeToString([]byte("hello")),
		"file_type": "text",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Success    bool           `json:"success"`
		Validation map[string]any `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Success)
	assert.Equal(t, true, ok.Validation["valid"])
	assert.Equal(t, float64(5), ok.Validation["file_size"])

	rec = do(t, h, http.MethodPost, "/api/validate-file", map[string]any{
		"file_data": "%%%", "file_type": "pdf",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/validate-file", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name        string
		opts        func(*Options, *fakeLedger)
		wantStatus  string
		wantStore   string
		wantService pdfServiceHealth
	}{
		{"minimal", func(o *Options, _ *fakeLedger) { o.Ledger = nil }, "healthy", "disabled", pdfServiceHealth{}},
		{"all up", func(o *Options, _ *fakeLedger) { o.PDFService = fakeChecker(true) }, "healthy", "ok", pdfServiceHealth{true, true}},
		{"service down", func(o *Options, _ *fakeLedger) { o.PDFService = fakeChecker(false) }, "healthy", "ok", pdfServiceHealth{true, false}},
		{"store down", func(_ *Options, l *fakeLedger) { l.failing = true }, "degraded", "error", pdfServiceHealth{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{}
			opts := Options{Ledger: ledger, Version: "1.2.3"}
			tt.opts(&opts, ledger)

			rec := do(t, New(opts).Handler(), http.MethodGet, "/api/health", nil, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var h healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
			assert.Equal(t, tt.wantStatus, h.Status)
			assert.Equal(t, tt.wantStore, h.Store)
			assert.Equal(t, tt.wantService, h.PDFService)
			assert.Equal(t, "1.2.3", h.Version)
			assert.Equal(t, types.EngineDOCX, h.Engine)
		})
	}
}

// --- middleware ---

func TestRequestID(t *testing.T) {
	h := New(Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/api/health", nil, map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	first := do(t, h, http.MethodGet, "/api/health", nil, nil).Header().Get(HeaderRequestID)
	second := do(t, h, http.MethodGet, "/api/health", nil, nil).Header().Get(HeaderRequestID)
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestRequestSizeLimits(t *testing.T) {
	tests := []struct {
		name       string
		server     types.ServerConfig
		limits     types.LimitsConfig
		body       string
		wantStatus int
	}{
		{"within limits", types.ServerConfig{}, types.LimitsConfig{}, "{}", http.StatusBadRequest},
		{"over response limit", types.ServerConfig{}, types.LimitsConfig{MaxResponseBytes: 64}, strings.Repeat(" ", 65) + "{}", http.StatusRequestEntityTooLarge},
		{"over body limit", types.ServerConfig{MaxBodyBytes: 64}, types.LimitsConfig{}, strings.Repeat(" ", 65) + "{}", http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := generator.New(types.PDFConfig{Engine: types.EngineNative}, generator.Deps{Limits: limits.New(tt.limits)})
			h := New(Options{Config: tt.server, Generator: gen, Ledger: &fakeLedger{}}).Handler()

			rec := do(t, h, http.MethodPost, "/api/generate/pdf", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusRequestEntityTooLarge {
				assert.Equal(t, "FILE_SIZE_ERROR", errorResponse(t, rec).ErrorType)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := New(Options{Config: types.ServerConfig{RateLimit: 0.001, RateBurst: 1}}).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/health", nil, nil).Code)
	rec := do(t, h, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_ERROR", errorResponse(t, rec).ErrorType)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRecoverer(t *testing.T) {
	h := New(Options{Ledger: &panicLedger{}}).Handler()

	rec := do(t, h, http.MethodGet, "/api/downloads/dl-a", nil, map[string]string{HeaderRequestID: "panic-1"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "panic-1", rec.Header().Get(HeaderRequestID))

	// The server keeps serving after a panic.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/health", nil, nil).Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, "10.0.0.9:1234", "198.51.100.2"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "10.0.0.9:1234", "198.51.100.3"},
		{"real ip wins", map[string]string{"X-Real-IP": "198.51.100.3", "X-Forwarded-For": "198.51.100.2"}, "10.0.0.9:1234", "198.51.100.3"},
		{"garbage header", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.9:1234", "10.0.0.9"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			var got string
			middleware.RealIP(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = clientIP(r)
			})).ServeHTTP(httptest.NewRecorder(), r)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun(t *testing.T) {
	s := New(Options{Config: types.ServerConfig{Addr: "127.0.0.1:0"}})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
