package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ieee-docgen/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document generator API over HTTP",
	Long: `Serve starts the HTTP API: the document-generator dispatch endpoint,
the per-format generate routes, DOCX to PDF conversion, file validation,
health, and download lookup. It shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := newEngines(ctx, cfg)
	defer e.Close()

	opts := server.Options{
		Config:    cfg.Server,
		Generator: e.gen,
		Logger:    logger,
		Version:   version,
	}
	if e.service != nil {
		opts.PDFService = e.service
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening download ledger: %w", err)
	}
	if st != nil {
		defer st.Close()
		opts.Ledger = st
	}

	return server.New(opts).Run(ctx)
}
