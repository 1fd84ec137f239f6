// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/internal/browser"
	"github.com/pdiddy/ieee-docgen/internal/container"
	"github.com/pdiddy/ieee-docgen/internal/convert"
	"github.com/pdiddy/ieee-docgen/internal/generator"
	"github.com/pdiddy/ieee-docgen/internal/limits"
	"github.com/pdiddy/ieee-docgen/internal/pdfservice"
	"github.com/pdiddy/ieee-docgen/internal/store"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// engines holds the constructed generator and the resources it owns.
type engines struct {
	gen     *generator.Service
	service *pdfservice.Client
	printer *browser.Printer
}

func (e *engines) Close() {
	if e.service != nil {
		e.service.Close()
	}
	if e.printer != nil {
		if err := e.printer.Close(); err != nil {
			logger.Warn("closing browser", zap.Error(err))
		}
	}
}

// newEngines builds a generator from c. Engines that are not configured
// or not available are left out and their paths fall back to native
// rendering.
func newEngines(ctx context.Context, c types.Config) *engines {
	e := &engines{}
	deps := generator.Deps{
		Limits: limits.New(c.Limits),
		Logger: logger,
	}

	svc, err := pdfservice.New(c.PDFService, logger)
	switch {
	case err == nil:
		e.service = svc
		deps.PDFService = svc
	case errors.Is(err, pdfservice.ErrNotConfigured):
		logger.Info("pdf service not configured, using direct conversion")
	default:
		logger.Warn("pdf service client failed", zap.Error(err))
	}

	if p := newPandoc(ctx, c.Pandoc); p != nil {
		deps.Pandoc = p
	}

	if c.PDF.Engine == types.EngineBrowser || c.Browser.ControlURL != "" {
		e.printer = browser.New(c.Browser, logger)
		deps.Printer = e.printer
	}

	e.gen = generator.New(c.PDF, deps)
	return e
}

// newPandoc returns a pandoc converter, or nil when pandoc cannot run.
func newPandoc(ctx context.Context, c types.PandocConfig) convert.Converter {
	var rt container.Runtime
	if c.UseContainer {
		r, err := container.DetectRuntime(ctx)
		if err != nil {
			logger.Info("no container runtime for pandoc", zap.Error(err))
			return nil
		}
		rt = r
	}
	p, err := convert.NewPandocConverter(ctx, c, rt)
	if err != nil {
		logger.Info("pandoc unavailable", zap.Error(err))
		return nil
	}
	return p
}

// openStore opens the download ledger, or returns nil when disabled.
func openStore(c types.StoreConfig) (*store.Store, error) {
	if !c.Enabled {
		return nil, nil
	}
	return store.Open(c.Path)
}
