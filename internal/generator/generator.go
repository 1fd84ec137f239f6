// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generator produces IEEE papers in DOCX, PDF and HTML from
// document requests. It picks the rendering path for each format and
// falls back to the native renderers when an external engine fails.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/internal/apierr"
	"github.com/pdiddy/ieee-docgen/internal/convert"
	"github.com/pdiddy/ieee-docgen/internal/docx"
	"github.com/pdiddy/ieee-docgen/internal/htmlrender"
	"github.com/pdiddy/ieee-docgen/internal/limits"
	"github.com/pdiddy/ieee-docgen/internal/model"
	"github.com/pdiddy/ieee-docgen/internal/pdf"
	"github.com/pdiddy/ieee-docgen/internal/pdfservice"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// Conversion methods reported in Result.Method.
const (
	MethodNativeDOCX     = "native_docx"
	MethodPandocDOCX     = "pandoc_html"
	MethodServicePrefix  = "pdf_service_"
	MethodDirectFallback = "direct_docx2pdf_fallback"
	MethodDirect         = "direct_docx2pdf"
	MethodBrowser        = "browser_html"
	MethodNative         = "native_gofpdf"
	MethodHTML           = "html_template"
)

// User-facing result messages.
const (
	msgDOCX       = "DOCX document generated successfully"
	msgPDF        = "PDF generated successfully via DOCX→PDF conversion"
	msgPDFDirect  = "PDF generated successfully via direct Word→PDF conversion"
	msgPDFBrowser = "PDF generated successfully via HTML rendering"
	msgPDFNative  = "PDF generated successfully"
	msgPreview    = "PDF preview generated successfully"
	msgHTML       = "HTML document generated successfully"
)

// PDFService converts DOCX to PDF remotely. Convert makes one conversion
// call; the request path never waits out the service's Retry-After.
type PDFService interface {
	Convert(ctx context.Context, docx []byte) (*pdfservice.Response, error)
}

// Printer prints an HTML page to PDF.
type Printer interface {
	PrintPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Deps are the optional engines a Service can use. Nil fields disable
// the engine and its path falls back to native rendering.
type Deps struct {
	PDFService PDFService
	Pandoc     convert.Converter
	Printer    Printer
	Limits     *limits.Validator
	Logger     *zap.Logger
}

// Result is one generated file.
type Result struct {
	Data        []byte
	ContentType string
	Method      string
	Message     string
	Title       string
	Format      string
	PageCount   int
}

// Service generates documents.
type Service struct {
	engine  string
	builder model.Builder
	deps    Deps
	logger  *zap.Logger
}

// New returns a Service using cfg.Engine as the default PDF engine.
func New(cfg types.PDFConfig, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Limits == nil {
		deps.Limits = limits.New(types.LimitsConfig{})
	}
	engine := cfg.Engine
	if engine == "" {
		engine = types.EngineDOCX
	}
	return &Service{
		engine:  engine,
		builder: model.Builder{AllowUntitled: cfg.AllowUntitled},
		deps:    deps,
		logger:  deps.Logger,
	}
}

// Engine returns the default PDF engine.
func (s *Service) Engine() string { return s.engine }

// Limits returns the validator results are checked against.
func (s *Service) Limits() *limits.Validator { return s.deps.Limits }

func (s *Service) build(req *types.DocumentRequest) (*model.Document, error) {
	doc, err := s.builder.Build(req)
	if errors.Is(err, model.ErrTitleRequired) {
		return nil, apierr.Wrap(apierr.Validation, "Title is required", err)
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.Processing, "building document model", err)
	}
	return doc, nil
}

// DOCX renders req as a Word document. opts.DOCXEngine "pandoc" routes
// through HTML and pandoc; without a pandoc converter it uses the native
// writer.
func (s *Service) DOCX(ctx context.Context, req *types.DocumentRequest, opts types.RenderOptions) (Result, error) {
	doc, err := s.build(req)
	if err != nil {
		return Result{}, err
	}

	data, method, err := s.renderDOCX(ctx, doc, opts.DOCXEngine)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Data:        data,
		ContentType: types.MIMEDOCX,
		Method:      method,
		Message:     msgDOCX,
		Title:       doc.Title,
		Format:      types.FormatDOCX,
	}
	return s.check(res, limits.KindDOCX)
}

func (s *Service) renderDOCX(ctx context.Context, doc *model.Document, engine string) ([]byte, string, error) {
	if engine == types.EnginePandoc {
		if s.deps.Pandoc != nil {
			data, err := s.pandocDOCX(ctx, doc)
			if err == nil {
				return data, MethodPandocDOCX, nil
			}
			s.logger.Warn("pandoc conversion failed, using native docx writer", zap.Error(err))
		} else {
			s.logger.Warn("pandoc requested but not configured, using native docx writer")
		}
	}

	data, err := docx.Render(doc)
	if err != nil {
		return nil, "", apierr.Wrap(apierr.Processing, "rendering DOCX", err)
	}
	return data, MethodNativeDOCX, nil
}

func (s *Service) pandocDOCX(ctx context.Context, doc *model.Document) ([]byte, error) {
	page, err := htmlrender.Render(doc, htmlrender.Options{})
	if err != nil {
		return nil, err
	}
	return s.deps.Pandoc.Convert(ctx, page)
}

// PDF renders req as a PDF using opts.PDFEngine or the default engine.
func (s *Service) PDF(ctx context.Context, req *types.DocumentRequest, opts types.RenderOptions) (Result, error) {
	return s.pdf(ctx, req, opts, false)
}

// Preview renders req as a PDF marked as a preview.
func (s *Service) Preview(ctx context.Context, req *types.DocumentRequest) (Result, error) {
	return s.pdf(ctx, req, types.RenderOptions{}, true)
}

func (s *Service) pdf(ctx context.Context, req *types.DocumentRequest, opts types.RenderOptions, preview bool) (Result, error) {
	engine := s.engine
	if opts.PDFEngine != "" {
		engine = opts.PDFEngine
	}

	doc, err := s.build(req)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch engine {
	case types.EngineDOCX:
		res, err = s.pdfViaDOCX(ctx, doc, opts)
	case types.EngineBrowser:
		res, err = s.pdfViaBrowser(ctx, doc, preview)
	case types.EngineNative:
		res, err = s.pdfNative(doc)
	default:
		return Result{}, apierr.New(apierr.Validation, fmt.Sprintf("unknown PDF engine %q", engine))
	}
	if err != nil {
		return Result{}, err
	}

	res.ContentType = types.MIMEPDF
	res.Format = types.FormatPDF
	res.Title = doc.Title
	if preview {
		res.Message = msgPreview
	}
	s.logger.Info("pdf generated",
		zap.String("engine", engine),
		zap.String("method", res.Method),
		zap.Int("bytes", len(res.Data)))
	return s.check(res, limits.KindPDF)
}

// pdfViaDOCX renders DOCX and converts it through the PDF service. On any
// service failure, or without a service, the PDF is drawn directly from
// the same document model the DOCX was rendered from.
func (s *Service) pdfViaDOCX(ctx context.Context, doc *model.Document, opts types.RenderOptions) (Result, error) {
	if s.deps.PDFService != nil {
		data, _, err := s.renderDOCX(ctx, doc, opts.DOCXEngine)
		if err != nil {
			return Result{}, err
		}
		out, method, err := s.convertRemote(ctx, data)
		if err == nil {
			return Result{Data: out, Method: method, Message: msgPDF}, nil
		}
		s.logger.Warn("pdf service failed, falling back to direct conversion",
			zap.String("code", string(pdfservice.CodeOf(err))), zap.Error(err))
	}

	out, err := pdf.Render(doc)
	if err != nil {
		return Result{}, apierr.Wrap(apierr.Processing, "rendering PDF", err)
	}
	return Result{Data: out, Method: MethodDirectFallback, Message: msgPDFDirect}, nil
}

func (s *Service) convertRemote(ctx context.Context, data []byte) ([]byte, string, error) {
	resp, err := s.deps.PDFService.Convert(ctx, data)
	if err != nil {
		return nil, "", err
	}
	out, err := resp.PDF()
	if err != nil {
		return nil, "", err
	}
	return out, MethodServicePrefix + resp.ConversionMethod, nil
}

func (s *Service) pdfViaBrowser(ctx context.Context, doc *model.Document, preview bool) (Result, error) {
	if s.deps.Printer == nil {
		s.logger.Warn("browser engine requested but not configured, using native renderer")
		return s.pdfNative(doc)
	}
	page, err := htmlrender.Render(doc, htmlrender.Options{Preview: preview})
	if err != nil {
		return Result{}, apierr.Wrap(apierr.Processing, "rendering HTML", err)
	}
	out, err := s.deps.Printer.PrintPDF(ctx, page)
	if err != nil {
		s.logger.Warn("browser print failed, using native renderer", zap.Error(err))
		return s.pdfNative(doc)
	}
	return Result{Data: out, Method: MethodBrowser, Message: msgPDFBrowser}, nil
}

func (s *Service) pdfNative(doc *model.Document) (Result, error) {
	out, err := pdf.Render(doc)
	if err != nil {
		return Result{}, apierr.Wrap(apierr.Processing, "rendering PDF", err)
	}
	return Result{Data: out, Method: MethodNative, Message: msgPDFNative}, nil
}

// HTML renders req as a standalone HTML page.
func (s *Service) HTML(_ context.Context, req *types.DocumentRequest, preview bool) (Result, error) {
	doc, err := s.build(req)
	if err != nil {
		return Result{}, err
	}
	out, err := htmlrender.Render(doc, htmlrender.Options{Preview: preview})
	if err != nil {
		return Result{}, apierr.Wrap(apierr.Processing, "rendering HTML", err)
	}
	return s.check(Result{
		Data:        out,
		ContentType: types.MIMEHTML,
		Method:      MethodHTML,
		Message:     msgHTML,
		Title:       doc.Title,
		Format:      types.FormatHTML,
	}, limits.KindText)
}

// ConvertDOCX converts an uploaded DOCX to PDF without the PDF service.
func (s *Service) ConvertDOCX(_ context.Context, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, apierr.New(apierr.Validation, "DOCX data is required")
	}
	if _, err := s.deps.Limits.ValidateSize(limits.KindDOCX, int64(len(data))); err != nil {
		return Result{}, err
	}
	doc, err := pdf.ReadDOCX(data, s.deps.Limits.Info().MaxResponseBytes)
	if errors.Is(err, pdf.ErrDOCXTooLarge) {
		return Result{}, apierr.Wrap(apierr.FileSize, "DOCX package is too large once unpacked", err)
	}
	if errors.Is(err, pdf.ErrInvalidDOCX) {
		return Result{}, apierr.Wrap(apierr.Validation, "Invalid DOCX data", err)
	}
	if err != nil {
		return Result{}, apierr.Wrap(apierr.Processing, "reading DOCX", err)
	}
	out, err := pdf.Render(doc)
	if err != nil {
		return Result{}, apierr.Wrap(apierr.Processing, "converting DOCX to PDF", err)
	}

	title := doc.Title
	if title == model.UntitledTitle {
		title = ""
	}
	res := Result{
		Data:        out,
		ContentType: types.MIMEPDF,
		Method:      MethodDirect,
		Message:     msgPDFDirect,
		Title:       title,
		Format:      types.FormatPDF,
	}
	return s.check(res, limits.KindPDF)
}

// check validates the result size and fills in the page count for PDFs.
func (s *Service) check(res Result, kind string) (Result, error) {
	if _, err := s.deps.Limits.ValidateSize(kind, int64(len(res.Data))); err != nil {
		s.logger.Warn("generated file exceeds limits",
			zap.String("format", res.Format), zap.Int("bytes", len(res.Data)))
		return Result{}, err
	}
	if kind == limits.KindPDF {
		n, err := limits.InspectPDF(res.Data)
		if err != nil {
			s.logger.Warn("generated pdf could not be inspected", zap.Error(err))
		}
		res.PageCount = n
	}
	return res, nil
}

// Extension returns the file extension for a result format.
func Extension(format string) string {
	return "." + strings.ToLower(format)
}
