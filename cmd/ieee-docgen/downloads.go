package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ieee-docgen/internal/store"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "Inspect the download ledger",
	Long: `Downloads reads the SQLite ledger of generated files recorded by the
server: list recent rows, show one row, or export rows as YAML or JSON.`,
}

var downloadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded downloads, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDownloadsList,
}

var downloadsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded download",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownloadsShow,
}

var downloadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded downloads as YAML or JSON",
	Args:  cobra.NoArgs,
	RunE:  runDownloadsExport,
}

func init() {
	for _, c := range []*cobra.Command{downloadsListCmd, downloadsExportCmd} {
		c.Flags().String("file-format", "", "filter by file format: docx, pdf, html")
		c.Flags().String("status", "", "filter by status: completed or failed")
		c.Flags().Duration("since", 0, "only rows newer than this age (e.g. 24h)")
		c.Flags().Int("limit", 100, "maximum number of rows")
	}
	downloadsListCmd.Flags().Bool("json", false, "output rows as JSON")
	downloadsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	downloadsExportCmd.Flags().String("out", "", "output file (default stdout)")

	downloadsCmd.AddCommand(downloadsListCmd, downloadsShowCmd, downloadsExportCmd)
	rootCmd.AddCommand(downloadsCmd)
}

func openLedger() (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening download ledger: %w", err)
	}
	return st, nil
}

func queryOptions(cmd *cobra.Command) store.QueryOptions {
	var opts store.QueryOptions
	opts.Format, _ = cmd.Flags().GetString("file-format")
	opts.Status, _ = cmd.Flags().GetString("status")
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	return opts
}

func runDownloadsList(cmd *cobra.Command, args []string) error {
	st, err := openLedger()
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.List(cmd.Context(), queryOptions(cmd))
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	printDownloads(os.Stdout, rows)
	return nil
}

func printDownloads(w io.Writer, rows []types.Download) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFORMAT\tSIZE\tSTATUS\tDOWNLOADED\tTITLE")
	for _, d := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			d.ID, d.FileFormat, d.FileSize, d.Status, d.DownloadedAt.Format(time.RFC3339), d.DocumentTitle)
	}
	_ = tw.Flush()
}

func runDownloadsShow(cmd *cobra.Command, args []string) error {
	st, err := openLedger()
	if err != nil {
		return err
	}
	defer st.Close()

	d, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func runDownloadsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	st, err := openLedger()
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	opts := queryOptions(cmd)
	switch format {
	case "yaml", "yml":
		err = st.ExportYAML(cmd.Context(), w, opts)
	case "json":
		err = st.ExportJSON(cmd.Context(), w, opts)
	default:
		return fmt.Errorf("unsupported export format %q (want yaml or json)", format)
	}
	if err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Exported downloads to %s\n", outPath)
	}
	return nil
}
