// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/ieee-docgen/internal/container"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// ErrPandocUnavailable is returned when neither the pandoc binary nor a
// container runtime with the pandoc image can be found.
var ErrPandocUnavailable = errors.New("convert: pandoc unavailable")

var pandocArgs = []string{"-f", "html", "-t", "docx", "-o", "-"}

// PandocConverter turns HTML into DOCX by piping it through pandoc,
// either on the host or inside the pandoc container image.
type PandocConverter struct {
	runner container.Runner
	target string // binary or image passed to runner
}

// NewPandocConverter picks the host binary or the container according to
// cfg. rt may be nil when cfg.UseContainer is false.
func NewPandocConverter(ctx context.Context, cfg types.PandocConfig, rt container.Runtime) (*PandocConverter, error) {
	if cfg.UseContainer {
		if rt == nil {
			return nil, fmt.Errorf("%w: no container runtime", ErrPandocUnavailable)
		}
		if err := rt.ImageExists(ctx, cfg.Image); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPandocUnavailable, err)
		}
		return &PandocConverter{runner: rt, target: cfg.Image}, nil
	}

	local := container.NewLocal()
	if !local.Available(cfg.Binary) {
		return nil, fmt.Errorf("%w: %s not on PATH", ErrPandocUnavailable, cfg.Binary)
	}
	return &PandocConverter{runner: local, target: cfg.Binary}, nil
}

func (p *PandocConverter) Name() string { return "pandoc" }

// Convert pipes html through pandoc and returns the DOCX bytes.
func (p *PandocConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := p.runner.Run(ctx, p.target, pandocArgs, bytes.NewReader(html), &out); err != nil {
		return nil, fmt.Errorf("converting with pandoc (%s): %w", p.runner.Name(), err)
	}
	if out.Len() == 0 {
		return nil, errors.New("pandoc produced empty output")
	}
	return out.Bytes(), nil
}
