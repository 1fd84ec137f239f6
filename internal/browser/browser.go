// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser prints HTML pages to PDF through headless Chrome.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// ErrEmptyHTML is returned when PrintPDF receives no content.
var ErrEmptyHTML = errors.New("browser: empty html")

// Letter paper in inches; margins come from the page's @page rule.
const (
	paperWidthIn  = 8.5
	paperHeightIn = 11
)

// Printer holds one Chrome connection shared by all print jobs.
type Printer struct {
	cfg    types.BrowserConfig
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// New returns a Printer. Chrome is not contacted until the first call.
func New(cfg types.BrowserConfig, logger *zap.Logger) *Printer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Printer{cfg: cfg, logger: logger}
}

// connect returns a live browser, reconnecting when the old one died.
func (p *Printer) connect() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		if _, err := p.browser.Version(); err == nil {
			return p.browser, nil
		}
		p.logger.Warn("stale chrome connection, reconnecting")
		_ = p.browser.Close()
		p.browser = nil
	}

	controlURL := p.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(p.cfg.Headless)
		if p.cfg.Bin != "" {
			l = l.Bin(p.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launching chrome: %w", err)
		}
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}
	p.logger.Info("chrome connected", zap.String("control_url", controlURL))
	p.browser = b
	return b, nil
}

// Available reports whether a browser connection can be made.
func (p *Printer) Available(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	_, err := p.connect()
	return err == nil
}

// PrintPDF loads html into a blank page and prints it on letter paper.
func (p *Printer) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	if len(html) == 0 {
		return nil, ErrEmptyHTML
	}
	b, err := p.connect()
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	defer func() { _ = page.Close() }()
	page = page.Context(ctx)

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("loading html: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for page load: %w", err)
	}

	r, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:        float64Ptr(paperWidthIn),
		PaperHeight:       float64Ptr(paperHeightIn),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("printing pdf: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading pdf stream: %w", err)
	}
	return out, nil
}

// Close releases the browser connection.
func (p *Printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}

func float64Ptr(f float64) *float64 { return &f }
