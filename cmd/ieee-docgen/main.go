// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ieee-docgen CLI: the HTTP
// server plus batch generation, conversion and ledger commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/internal/logging"
	"github.com/pdiddy/ieee-docgen/internal/secrets"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the effective configuration, resolved in PersistentPreRunE.
	cfg types.Config

	logger = zap.NewNop()
)

// rootCmd is the base command for the ieee-docgen CLI.
var rootCmd = &cobra.Command{
	Use:   "ieee-docgen",
	Short: "Generate IEEE-formatted papers as DOCX, PDF and HTML",
	Long: `ieee-docgen turns structured paper requests (JSON, YAML, or a paper
project directory) into IEEE two-column documents.

serve exposes the generator over HTTP; generate and convert run the same
pipeline from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		l, err := logging.New(c.Log)
		if err != nil {
			return err
		}
		logger = l

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, logger)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		secrets.Apply(&c, s)
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./ieee-docgen.yaml or ~/.config/ieee-docgen/ieee-docgen.yaml)")
	pf.String("secrets-dir", ".secrets", "directory of secret files, one per key")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: json or console")
	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", pf.Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ieee-docgen")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ieee-docgen"))
		}
	}

	viper.SetEnvPrefix("IEEE_DOCGEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(types.DefaultConfig())

	// Legacy deployment variables.
	_ = viper.BindEnv("pdf_service.url", "IEEE_DOCGEN_PDF_SERVICE_URL", "PDF_SERVICE_URL")
	_ = viper.BindEnv("pdf_service.enabled", "IEEE_DOCGEN_PDF_SERVICE_ENABLED", "USE_PDF_SERVICE")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key so AutomaticEnv can override it
// through Unmarshal.
func setDefaults(d types.Config) {
	for k, v := range map[string]any{
		"server.addr":               d.Server.Addr,
		"server.read_timeout":       d.Server.ReadTimeout,
		"server.write_timeout":      d.Server.WriteTimeout,
		"server.max_body_bytes":     d.Server.MaxBodyBytes,
		"server.rate_limit":         d.Server.RateLimit,
		"server.rate_burst":         d.Server.RateBurst,
		"pdf_service.url":           d.PDFService.URL,
		"pdf_service.enabled":       d.PDFService.Enabled,
		"pdf_service.timeout":       d.PDFService.Timeout,
		"pdf_service.user_agent":    d.PDFService.UserAgent,
		"pdf_service.max_retries":   d.PDFService.MaxRetries,
		"pdf_service.backoff":       d.PDFService.Backoff,
		"pdf_service.token":         d.PDFService.Token,
		"pdf.engine":                d.PDF.Engine,
		"pdf.allow_untitled":        d.PDF.AllowUntitled,
		"pandoc.binary":             d.Pandoc.Binary,
		"pandoc.image":              d.Pandoc.Image,
		"pandoc.use_container":      d.Pandoc.UseContainer,
		"browser.control_url":       d.Browser.ControlURL,
		"browser.bin":               d.Browser.Bin,
		"browser.headless":          d.Browser.Headless,
		"store.enabled":             d.Store.Enabled,
		"store.path":                d.Store.Path,
		"limits.docx":               d.Limits.DOCX,
		"limits.pdf":                d.Limits.PDF,
		"limits.image":              d.Limits.Image,
		"limits.text":               d.Limits.Text,
		"limits.json":               d.Limits.JSON,
		"limits.max_response_bytes": d.Limits.MaxResponseBytes,
		"log.level":                 d.Log.Level,
		"log.format":                d.Log.Format,
		"log.development":           d.Log.Development,
	} {
		viper.SetDefault(k, v)
	}
}

// loadConfig overlays viper values on the defaults.
func loadConfig() (types.Config, error) {
	c := types.DefaultConfig()
	if err := viper.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("parsing config: %w", err)
	}
	if v := os.Getenv("PDF_SERVICE_TIMEOUT"); v != "" && os.Getenv("IEEE_DOCGEN_PDF_SERVICE_TIMEOUT") == "" {
		d, err := parseSeconds(v)
		if err != nil {
			return c, fmt.Errorf("PDF_SERVICE_TIMEOUT: %w", err)
		}
		c.PDFService.Timeout = d
	}
	return c, nil
}

// parseSeconds accepts a plain number of seconds or a Go duration.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
