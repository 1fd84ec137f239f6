// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ieee-docgen/internal/apierr"
	"github.com/pdiddy/ieee-docgen/internal/convert"
	"github.com/pdiddy/ieee-docgen/internal/htmlrender"
	"github.com/pdiddy/ieee-docgen/internal/limits"
	"github.com/pdiddy/ieee-docgen/internal/model"
	"github.com/pdiddy/ieee-docgen/internal/pdf"
	"github.com/pdiddy/ieee-docgen/internal/pdfservice"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// --- fakes ---

type fakeService struct {
	resp  *pdfservice.Response
	err   error
	calls int
}

func (f *fakeService) Convert(_ context.Context, docx []byte) (*pdfservice.Response, error) {
	f.calls++
	if len(docx) == 0 {
		return nil, &pdfservice.Error{Code: pdfservice.CodeInvalidRequest}
	}
	return f.resp, f.err
}

type fakePrinter struct {
	out  []byte
	err  error
	html []byte
}

func (f *fakePrinter) PrintPDF(_ context.Context, html []byte) ([]byte, error) {
	f.html = html
	return f.out, f.err
}

func sampleRequest() *types.DocumentRequest {
	return &types.DocumentRequest{
		Title:    "Generator Study",
		Authors:  []types.Author{{Name: "Ada Lovelace", University: "Engines"}},
		Abstract: "We study generators.",
		Keywords: "docx, pdf",
		Sections: []types.Section{{
			Title: "Introduction",
			ContentBlocks: []types.ContentBlock{
				{Type: types.BlockText, Content: "Some <b>bold</b> text."},
			},
		}},
		References: []types.Reference{{Text: "A. Author, \"Paper,\" 2020."}},
	}
}

func nativePDF(t *testing.T) []byte {
	t.Helper()
	doc, err := model.Build(sampleRequest())
	require.NoError(t, err)
	out, err := pdf.Render(doc)
	require.NoError(t, err)
	return out
}

// --- DOCX ---

func TestDOCX(t *testing.T) {
	s := New(types.PDFConfig{}, Deps{})
	res, err := s.DOCX(context.Background(), sampleRequest(), types.RenderOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.MIMEDOCX, res.ContentType)
	assert.Equal(t, MethodNativeDOCX, res.Method)
	assert.Equal(t, "Generator Study", res.Title)
	assert.Equal(t, types.FormatDOCX, res.Format)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("PK")))
}

func TestDOCXPandoc(t *testing.T) {
	var gotHTML []byte
	pandoc := convert.Func{Label: "pandoc", Fn: func(_ context.Context, in []byte) ([]byte, error) {
		gotHTML = in
		return []byte("PK converted"), nil
	}}
	s := New(types.PDFConfig{}, Deps{Pandoc: pandoc})

	res, err := s.DOCX(context.Background(), sampleRequest(), types.RenderOptions{DOCXEngine: types.EnginePandoc})
	require.NoError(t, err)
	assert.Equal(t, MethodPandocDOCX, res.Method)
	assert.Equal(t, []byte("PK converted"), res.Data)
	assert.Contains(t, string(gotHTML), "Generator Study")
}

func TestDOCXPandocFallsBack(t *testing.T) {
	failing := convert.Func{Label: "pandoc", Fn: func(context.Context, []byte) ([]byte, error) {
		return nil, convert.ErrPandocUnavailable
	}}
	for name, deps := range map[string]Deps{"failing": {Pandoc: failing}, "unconfigured": {}} {
		t.Run(name, func(t *testing.T) {
			res, err := New(types.PDFConfig{}, deps).DOCX(context.Background(), sampleRequest(),
				types.RenderOptions{DOCXEngine: types.EnginePandoc})
			require.NoError(t, err)
			assert.Equal(t, MethodNativeDOCX, res.Method)
		})
	}
}

// --- PDF ---

func TestPDFEngines(t *testing.T) {
	good := nativePDF(t)
	okResp := &pdfservice.Response{
		Success:          true,
		PDFData:          base64.StdEncoding.EncodeToString(good),
		ConversionMethod: pdfservice.DefaultMethod,
	}
	svcErr := &pdfservice.Error{Code: pdfservice.CodeServiceUnavailable}

	tests := []struct {
		name       string
		engine     string
		override   string
		deps       Deps
		wantMethod string
	}{
		{"service", types.EngineDOCX, "", Deps{PDFService: &fakeService{resp: okResp}}, "pdf_service_docx2pdf_exact"},
		{"service failure", types.EngineDOCX, "", Deps{PDFService: &fakeService{err: svcErr}}, MethodDirectFallback},
		{"service bad payload", types.EngineDOCX, "", Deps{PDFService: &fakeService{resp: &pdfservice.Response{}}}, MethodDirectFallback},
		{"no service", types.EngineDOCX, "", Deps{}, MethodDirectFallback},
		{"default engine", "", "", Deps{}, MethodDirectFallback},
		{"browser", types.EngineBrowser, "", Deps{Printer: &fakePrinter{out: good}}, MethodBrowser},
		{"browser failure", types.EngineBrowser, "", Deps{Printer: &fakePrinter{err: errors.New("no chrome")}}, MethodNative},
		{"browser unconfigured", types.EngineBrowser, "", Deps{}, MethodNative},
		{"native", types.EngineNative, "", Deps{}, MethodNative},
		{"request override", types.EngineDOCX, types.EngineNative, Deps{PDFService: &fakeService{resp: okResp}}, MethodNative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(types.PDFConfig{Engine: tt.engine}, tt.deps)
			res, err := s.PDF(context.Background(), sampleRequest(), types.RenderOptions{PDFEngine: tt.override})
			require.NoError(t, err)

			assert.Equal(t, tt.wantMethod, res.Method)
			assert.Equal(t, types.MIMEPDF, res.ContentType)
			assert.Equal(t, types.FormatPDF, res.Format)
			assert.Equal(t, "Generator Study", res.Title)
			assert.True(t, bytes.HasPrefix(res.Data, []byte("%PDF-")))
			assert.GreaterOrEqual(t, res.PageCount, 1)
		})
	}
}

func pdfText(t *testing.T, b []byte) string {
	t.Helper()
	r, err := lpdf.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	text, err := r.GetPlainText()
	require.NoError(t, err)
	out, err := io.ReadAll(text)
	require.NoError(t, err)
	return string(out)
}

func TestPDFFallbackKeepsStructure(t *testing.T) {
	req := &types.DocumentRequest{
		Title:   "LLMs",
		Authors: []types.Author{{Name: "Ada Lovelace", University: "Cambridge"}},
		Sections: []types.Section{{
			Title: "Introduction",
			ContentBlocks: []types.ContentBlock{
				{Type: types.BlockText, Content: "Abstract syntax trees are central to this work."},
				{Type: types.BlockText, Content: "Keywords are extracted from the corpus."},
			},
		}},
	}
	svc := &fakeService{err: &pdfservice.Error{Code: pdfservice.CodeServiceUnavailable}}
	res, err := New(types.PDFConfig{}, Deps{PDFService: svc}).PDF(context.Background(), req, types.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, MethodDirectFallback, res.Method)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "LLMs", res.Title)

	text := pdfText(t, res.Data)
	assert.Contains(t, text, "LLMs")
	assert.Contains(t, text, "Ada Lovelace")
	assert.Contains(t, text, "Abstract syntax trees are central")
	assert.Contains(t, text, "Keywords are extracted")
	assert.NotContains(t, text, "Untitled Document")
}

func TestPDFServiceFailureIsBounded(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client, err := pdfservice.New(types.PDFServiceConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second},
		URL:        ts.URL,
		Enabled:    true,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	}, nil)
	require.NoError(t, err)
	defer client.Close()

	start := time.Now()
	res, err := New(types.PDFConfig{}, Deps{PDFService: client}).PDF(context.Background(), sampleRequest(), types.RenderOptions{})
	require.NoError(t, err)

	assert.Equal(t, MethodDirectFallback, res.Method)
	// One conversion call: the first attempt plus MaxRetries transport retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPDFUnknownEngine(t *testing.T) {
	s := New(types.PDFConfig{Engine: "laser"}, Deps{})
	_, err := s.PDF(context.Background(), sampleRequest(), types.RenderOptions{})
	assert.ErrorIs(t, err, &apierr.Error{Type: apierr.Validation})
}

func TestTitleRequired(t *testing.T) {
	s := New(types.PDFConfig{}, Deps{})
	req := sampleRequest()
	req.Title = "   "

	_, err := s.DOCX(context.Background(), req, types.RenderOptions{})
	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.Validation, e.Type)
	assert.Equal(t, "Title is required", e.Message)
	assert.ErrorIs(t, err, model.ErrTitleRequired)

	s = New(types.PDFConfig{AllowUntitled: true}, Deps{})
	res, err := s.DOCX(context.Background(), req, types.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.UntitledTitle, res.Title)
	assert.Equal(t, MethodNativeDOCX, res.Method)
}

func TestPreview(t *testing.T) {
	p := &fakePrinter{out: nativePDF(t)}
	s := New(types.PDFConfig{Engine: types.EngineBrowser}, Deps{Printer: p})

	res, err := s.Preview(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, MethodBrowser, res.Method)
	assert.Equal(t, msgPreview, res.Message)
	assert.Contains(t, string(p.html), htmlrender.DefaultPreviewNote)
}

func TestPDFExceedsLimit(t *testing.T) {
	s := New(types.PDFConfig{Engine: types.EngineNative}, Deps{Limits: limits.New(types.LimitsConfig{PDF: 100})})
	_, err := s.PDF(context.Background(), sampleRequest(), types.RenderOptions{})
	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.FileSize, e.Type)
	assert.Equal(t, 413, e.Status)
}

// --- HTML and direct conversion ---

func TestHTML(t *testing.T) {
	s := New(types.PDFConfig{}, Deps{})
	res, err := s.HTML(context.Background(), sampleRequest(), false)
	require.NoError(t, err)
	assert.Equal(t, types.MIMEHTML, res.ContentType)
	assert.Equal(t, types.FormatHTML, res.Format)
	assert.Contains(t, string(res.Data), "Generator Study")
	assert.NotContains(t, string(res.Data), htmlrender.DefaultPreviewNote)
}

func TestConvertDOCX(t *testing.T) {
	s := New(types.PDFConfig{}, Deps{})
	docxRes, err := s.DOCX(context.Background(), sampleRequest(), types.RenderOptions{})
	require.NoError(t, err)

	res, err := s.ConvertDOCX(context.Background(), docxRes.Data)
	require.NoError(t, err)
	assert.Equal(t, MethodDirect, res.Method)
	assert.Equal(t, "Generator Study", res.Title)
	assert.GreaterOrEqual(t, res.PageCount, 1)
}

func TestConvertDOCXInvalid(t *testing.T) {
	s := New(types.PDFConfig{}, Deps{})
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"not a zip", []byte("plain text")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ConvertDOCX(context.Background(), tt.in)
			assert.ErrorIs(t, err, &apierr.Error{Type: apierr.Validation})
		})
	}
}

func TestConvertDOCXUnpackedLimit(t *testing.T) {
	data, err := New(types.PDFConfig{}, Deps{}).DOCX(context.Background(), sampleRequest(), types.RenderOptions{})
	require.NoError(t, err)

	// The package itself passes the size check; its entries unpack past it.
	v := limits.New(types.LimitsConfig{MaxResponseBytes: int64(len(data.Data)) + 1})
	_, err = New(types.PDFConfig{}, Deps{Limits: v}).ConvertDOCX(context.Background(), data.Data)
	assert.ErrorIs(t, err, pdf.ErrDOCXTooLarge)
	assert.ErrorIs(t, err, &apierr.Error{Type: apierr.FileSize})
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".pdf", Extension("PDF"))
	assert.Equal(t, ".docx", Extension(types.FormatDOCX))
}
