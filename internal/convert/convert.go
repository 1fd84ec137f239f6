// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert runs file conversions with pluggable backends: pandoc
// for HTML to DOCX and the native DOCX to PDF converter for batches.
package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Converter transforms one document format into another.
type Converter interface {
	// Name identifies the backend in logs and conversion methods.
	Name() string

	// Convert returns the converted bytes of in.
	Convert(ctx context.Context, in []byte) ([]byte, error)
}

// Func adapts a plain function to Converter.
type Func struct {
	Label string
	Fn    func(ctx context.Context, in []byte) ([]byte, error)
}

func (f Func) Name() string { return f.Label }

func (f Func) Convert(ctx context.Context, in []byte) ([]byte, error) { return f.Fn(ctx, in) }

// Status is the outcome of converting one file.
type Status int

const (
	StatusConverted Status = iota
	StatusSkipped
	StatusFailed
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchResult) add(s Status) {
	switch s {
	case StatusConverted:
		r.Converted++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// OutputPath returns the file ConvertFile writes for inPath.
func OutputPath(inPath, outDir, ext string) string {
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	return filepath.Join(outDir, base+"."+strings.TrimPrefix(ext, "."))
}

// ConvertFile converts inPath into outDir, replacing its extension with
// ext. An existing output is left alone and reported as skipped.
func ConvertFile(ctx context.Context, c Converter, inPath, outDir, ext string, w io.Writer) Status {
	outPath := OutputPath(inPath, outDir, ext)
	name := filepath.Base(inPath)

	if _, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", name)
		return StatusSkipped
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return StatusFailed
	}

	in, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return StatusFailed
	}

	out, err := c.Convert(ctx, in)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return StatusFailed
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", name, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "converted: %s -> %s\n", name, outPath)
	return StatusConverted
}

// ConvertBatch converts paths with at most workers conversions running at
// once, printing per-file status to w and returning a summary.
func ConvertBatch(ctx context.Context, c Converter, paths []string, outDir, ext string, workers int, w io.Writer) BatchResult {
	if workers < 1 {
		workers = 1
	}
	lw := &lockedWriter{w: w}

	var (
		mu     sync.Mutex
		result BatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range paths {
		g.Go(func() error {
			status := ConvertFile(gctx, c, p, outDir, ext, lw)
			mu.Lock()
			result.add(status)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// lockedWriter serializes status lines from concurrent workers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
