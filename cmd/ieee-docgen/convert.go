package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ieee-docgen/internal/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>...",
	Short: "Convert DOCX files to PDF, or HTML files to DOCX",
	Long: `Convert runs a batch conversion. With --to pdf (the default) each DOCX is
read back and laid out as an IEEE PDF without the conversion service.
With --to docx each HTML file is piped through pandoc. Files whose output
already exists are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("to", "pdf", "target format: pdf (from DOCX) or docx (from HTML via pandoc)")
	convertCmd.Flags().String("out", "output", "output directory")
	convertCmd.Flags().Int("jobs", 4, "files converted in parallel")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	to, _ := cmd.Flags().GetString("to")
	outDir, _ := cmd.Flags().GetString("out")
	jobs, _ := cmd.Flags().GetInt("jobs")
	ctx := cmd.Context()

	var c convert.Converter
	switch strings.ToLower(to) {
	case "pdf":
		e := newEngines(ctx, cfg)
		defer e.Close()
		c = convert.Func{Label: "direct_docx2pdf", Fn: func(ctx context.Context, in []byte) ([]byte, error) {
			res, err := e.gen.ConvertDOCX(ctx, in)
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		}}
	case "docx":
		c = newPandoc(ctx, cfg.Pandoc)
		if c == nil {
			return convert.ErrPandocUnavailable
		}
	default:
		return fmt.Errorf("unsupported target %q (want pdf or docx)", to)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	result := convert.ConvertBatch(ctx, c, args, outDir, "."+strings.ToLower(to), jobs, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}
