package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/ieee-docgen/internal/generator"
	"github.com/pdiddy/ieee-docgen/internal/project"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate <request.json|request.yaml|project-dir>...",
	Short: "Generate IEEE documents from requests or paper projects",
	Long: `Generate renders each input as an IEEE paper. Inputs are JSON or YAML
document requests, or paper project directories (paper.yaml, numbered
Markdown sections and references.yaml). Existing outputs are overwritten.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("format", types.FormatPDF, "output format: docx, pdf, or html")
	generateCmd.Flags().String("out", "output", "output directory")
	generateCmd.Flags().String("engine", "", "PDF engine: docx, browser, or native (default from config)")
	generateCmd.Flags().String("docx-engine", "", "DOCX engine: native or pandoc")
	generateCmd.Flags().Bool("preview", false, "mark PDF and HTML output as a preview")
	generateCmd.Flags().Bool("allow-untitled", false, "render inputs without a title as \"Untitled Document\"")
	generateCmd.Flags().Int("jobs", 4, "inputs generated in parallel")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outDir, _ := cmd.Flags().GetString("out")
	preview, _ := cmd.Flags().GetBool("preview")
	jobs, _ := cmd.Flags().GetInt("jobs")
	opts := types.RenderOptions{}
	opts.PDFEngine, _ = cmd.Flags().GetString("engine")
	opts.DOCXEngine, _ = cmd.Flags().GetString("docx-engine")

	format = strings.ToLower(format)
	switch format {
	case types.FormatDOCX, types.FormatPDF, types.FormatHTML:
	default:
		return fmt.Errorf("unsupported format %q (want docx, pdf, or html)", format)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	c := cfg
	if untitled, _ := cmd.Flags().GetBool("allow-untitled"); untitled {
		c.PDF.AllowUntitled = true
	}

	ctx := cmd.Context()
	e := newEngines(ctx, c)
	defer e.Close()

	gen := func(ctx context.Context, req *types.DocumentRequest) (generator.Result, error) {
		switch format {
		case types.FormatDOCX:
			return e.gen.DOCX(ctx, req, opts)
		case types.FormatHTML:
			return e.gen.HTML(ctx, req, preview)
		}
		if preview {
			return e.gen.Preview(ctx, req)
		}
		return e.gen.PDF(ctx, req, opts)
	}

	failed := generateBatch(ctx, args, outDir, generator.Extension(format), jobs, gen, os.Stdout)
	if failed > 0 {
		return fmt.Errorf("%d input(s) failed", failed)
	}
	return nil
}

type generateFunc func(context.Context, *types.DocumentRequest) (generator.Result, error)

// generateBatch renders inputs with at most jobs running at once and
// returns the number of failures.
func generateBatch(ctx context.Context, inputs []string, outDir, ext string, jobs int, gen generateFunc, w io.Writer) int {
	var (
		mu     sync.Mutex
		failed int
	)
	report := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, a...)
	}

	names := outputNames(inputs, ext)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, in := range inputs {
		g.Go(func() error {
			out := filepath.Join(outDir, names[i])
			res, err := generateOne(ctx, in, out, gen)
			if err != nil {
				report("  FAIL %s: %v\n", in, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			detail := res.Method
			if res.PageCount > 0 {
				detail = fmt.Sprintf("%s, %d page(s)", res.Method, res.PageCount)
			}
			report("  OK   %s -> %s (%s)\n", in, out, detail)
			return nil
		})
	}
	_ = g.Wait()

	report("\nGenerate summary: %d generated, %d failed (total: %d)\n", len(inputs)-failed, failed, len(inputs))
	return failed
}

func generateOne(ctx context.Context, in, out string, gen generateFunc) (generator.Result, error) {
	req, err := loadRequest(in)
	if err != nil {
		return generator.Result{}, err
	}
	res, err := gen(ctx, req)
	if err != nil {
		return generator.Result{}, err
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return generator.Result{}, fmt.Errorf("writing output: %w", err)
	}
	return res, nil
}

// loadRequest reads a request file or a paper project directory.
func loadRequest(path string) (*types.DocumentRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return project.Load(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req types.DocumentRequest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return &req, nil
}

// outputNames assigns each input its output file name. Inputs that share a
// base name get -2, -3, ... suffixes in argument order. Names are compared
// case-insensitively.
func outputNames(inputs []string, ext string) []string {
	names := make([]string, len(inputs))
	taken := map[string]bool{}
	for i, in := range inputs {
		base := outputBase(in)
		name := base + ext
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func outputBase(in string) string {
	base := filepath.Base(filepath.Clean(in))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
