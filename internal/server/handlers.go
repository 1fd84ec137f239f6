// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
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

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/internal/apierr"
	"github.com/pdiddy/ieee-docgen/internal/generator"
	"github.com/pdiddy/ieee-docgen/internal/limits"
	"github.com/pdiddy/ieee-docgen/internal/model"
	"github.com/pdiddy/ieee-docgen/internal/store"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

const healthTimeout = 5 * time.Second

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return apierr.New(apierr.FileSize, "request body too large").
			WithDetails(map[string]any{"limit": tooLarge.Limit})
	case errors.Is(err, io.EOF):
		return apierr.New(apierr.Validation, "Document data is required")
	}
	return apierr.Wrap(apierr.Validation, "Failed to parse request body: "+err.Error(), err)
}

func decodeDocument(r *http.Request) (*types.DocumentRequest, error) {
	var req types.DocumentRequest
	if err := decode(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// handleDispatch serves the legacy single-endpoint API: the format and
// action fields pick the output.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDocument(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	ctx := r.Context()
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == types.FormatDOCXToPDF {
		s.convert(w, r, req.DOCXData)
		return
	}
	if !req.HasTitle() {
		apierr.Write(w, apierr.New(apierr.Validation, "Title is required"))
		return
	}

	var res generator.Result
	switch {
	case format == types.FormatPDF:
		res, err = s.gen.PDF(ctx, req, req.Options)
	case format == types.FormatDOCX && req.Action == types.ActionDownload:
		res, err = s.gen.DOCX(ctx, req, req.Options)
	case format == types.FormatHTML:
		res, err = s.gen.HTML(ctx, req, false)
	default:
		format = "preview"
		res, err = s.gen.Preview(ctx, req)
	}
	s.respond(w, r, res, err, format)
}

func (s *Server) handleDOCX(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, types.FormatDOCX, func(ctx context.Context, req *types.DocumentRequest) (generator.Result, error) {
		return s.gen.DOCX(ctx, req, req.Options)
	})
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, types.FormatPDF, func(ctx context.Context, req *types.DocumentRequest) (generator.Result, error) {
		return s.gen.PDF(ctx, req, req.Options)
	})
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, types.FormatHTML, func(ctx context.Context, req *types.DocumentRequest) (generator.Result, error) {
		return s.gen.HTML(ctx, req, false)
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, "preview", func(ctx context.Context, req *types.DocumentRequest) (generator.Result, error) {
		return s.gen.Preview(ctx, req)
	})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, format string,
	fn func(context.Context, *types.DocumentRequest) (generator.Result, error)) {
	req, err := decodeDocument(r)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	res, err := fn(r.Context(), req)
	s.respond(w, r, res, err, format)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DOCXData string `json:"docx_data"`
	}
	if err := decode(r, &body); err != nil {
		apierr.Write(w, err)
		return
	}
	s.convert(w, r, body.DOCXData)
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request, encoded string) {
	if strings.TrimSpace(encoded) == "" {
		apierr.Write(w, apierr.New(apierr.Validation, "DOCX data is required for conversion"))
		return
	}
	_, data, err := s.gen.Limits().ValidateBase64(limits.KindDOCX, encoded)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	res, err := s.gen.ConvertDOCX(r.Context(), data)
	s.respond(w, r, res, err, types.FormatDOCXToPDF)
}

// respond writes res as a FileResponse and records it in the ledger.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, res generator.Result, err error, requested string) {
	if err != nil {
		e := apierr.From(err)
		s.logger.Warn("generation failed",
			zap.String("format", requested),
			zap.String("error_type", string(e.Type)),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		apierr.Write(w, e)
		return
	}

	body := types.FileResponse{
		Success:         true,
		FileData:        base64.StdEncoding.EncodeToString(res.Data),
		FileType:        res.Format,
		FileSize:        len(res.Data),
		Message:         res.Message,
		RequestedFormat: requested,
		ActualFormat:    res.Format,
		PageCount:       res.PageCount,
	}
	if res.Format == types.FormatPDF {
		body.ConversionMethod = res.Method
	}
	body.DocumentID = s.record(r, res)

	apierr.WriteJSON(w, http.StatusOK, body)
}

// record logs the download. Ledger failures never fail the request.
func (s *Server) record(r *http.Request, res generator.Result) string {
	if s.ledger == nil {
		return ""
	}
	title := res.Title
	if title == "" {
		title = model.UntitledTitle
	}
	d, err := s.ledger.Record(r.Context(), types.Download{
		DocumentTitle: title,
		FileFormat:    res.Format,
		FileSize:      len(res.Data),
		IPAddress:     clientIP(r),
		UserAgent:     r.UserAgent(),
		Status:        types.DownloadCompleted,
		Metadata: map[string]any{
			"conversion_method": res.Method,
			"page_count":        res.PageCount,
			"request_id":        RequestID(r.Context()),
		},
	})
	if err != nil {
		s.logger.Error("recording download failed", zap.Error(err))
		return ""
	}
	return d.ID
}

// clientIP returns the caller address. middleware.RealIP has already
// replaced RemoteAddr with a proxy-supplied address when one is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"limits":  s.gen.Limits().Info(),
	})
}

func (s *Server) handleValidateFile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileData string `json:"file_data"`
		FileType string `json:"file_type"`
	}
	if err := decode(r, &body); err != nil {
		apierr.Write(w, err)
		return
	}
	if body.FileData == "" {
		apierr.Write(w, apierr.New(apierr.Validation, "file_data is required"))
		return
	}
	if body.FileType == "" {
		body.FileType = limits.KindDOCX
	}

	report, _, err := s.gen.Limits().ValidateBase64(body.FileType, body.FileData)
	if err != nil {
		e := apierr.From(err)
		apierr.WriteJSON(w, e.Status, map[string]any{
			"success":    false,
			"error":      e.Message,
			"error_type": e.Type,
			"validation": report,
		})
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"validation": report,
	})
}

type pdfServiceHealth struct {
	Configured bool `json:"configured"`
	Available  bool `json:"available"`
}

type healthResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	Engine     string           `json:"pdf_engine"`
	PDFService pdfServiceHealth `json:"pdf_service"`
	Store      string           `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	h := healthResponse{Status: "healthy", Version: s.version, Engine: s.gen.Engine(), Store: "disabled"}
	if s.pdfSvc != nil {
		h.PDFService.Configured = true
		h.PDFService.Available = s.pdfSvc.Available(ctx)
	}
	if s.ledger != nil {
		h.Store = "ok"
		if err := s.ledger.Ping(ctx); err != nil {
			s.logger.Warn("ledger ping failed", zap.Error(err))
			h.Store = "error"
			h.Status = "degraded"
		}
	}
	apierr.WriteJSON(w, http.StatusOK, h)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.ledger == nil {
		apierr.Write(w, apierr.New(apierr.NotFound, "download ledger is disabled"))
		return
	}
	d, err := s.ledger.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		apierr.Write(w, apierr.Wrap(apierr.NotFound, fmt.Sprintf("download %q not found", id), err))
		return
	}
	if err != nil {
		apierr.Write(w, apierr.Wrap(apierr.Internal, "reading download ledger", err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "download": d})
}
