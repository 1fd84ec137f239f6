// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP client settings.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with outgoing requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// MaxBodyBytes caps request bodies (default 50 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// RateLimit is the sustained request rate per second. Zero disables limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// RateBurst is the token bucket size. Zero means twice RateLimit.
	RateBurst int `json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst"`
}

// PDFServiceConfig holds settings for the external DOCX-to-PDF service.
type PDFServiceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// URL is the service base URL. Empty disables the service.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Enabled toggles the service without clearing URL.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// MaxRetries is the number of conversion attempts (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Backoff is the base delay between attempts (default 500ms).
	Backoff time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`

	// Token is an optional bearer token.
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
}

// PDF engines.
const (
	EngineDOCX    = "docx"
	EngineBrowser = "browser"
	EngineNative  = "native"
	EnginePandoc  = "pandoc"
)

// PDFConfig selects how PDFs are produced.
type PDFConfig struct {
	// Engine is docx (service, then direct fallback), browser, or native.
	Engine string `json:"engine" yaml:"engine" mapstructure:"engine"`

	// AllowUntitled renders a request without a title as "Untitled
	// Document" instead of rejecting it. The HTTP dispatch still
	// requires a title.
	AllowUntitled bool `json:"allow_untitled" yaml:"allow_untitled" mapstructure:"allow_untitled"`
}

// PandocConfig holds settings for HTML-to-DOCX conversion through pandoc.
type PandocConfig struct {
	// Binary is the pandoc executable used when UseContainer is false.
	Binary string `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Image is the container image used when UseContainer is true.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	UseContainer bool `json:"use_container" yaml:"use_container" mapstructure:"use_container"`
}

// BrowserConfig holds settings for printing HTML through headless Chrome.
type BrowserConfig struct {
	// ControlURL is a DevTools websocket URL. Empty launches a browser.
	ControlURL string `json:"control_url" yaml:"control_url" mapstructure:"control_url"`

	// Bin is the Chrome binary to launch. Empty lets the launcher find one.
	Bin string `json:"bin" yaml:"bin" mapstructure:"bin"`

	Headless bool `json:"headless" yaml:"headless" mapstructure:"headless"`
}

// StoreConfig holds settings for the download ledger.
type StoreConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LimitsConfig holds file size limits in bytes.
type LimitsConfig struct {
	DOCX  int64 `json:"docx" yaml:"docx" mapstructure:"docx"`
	PDF   int64 `json:"pdf" yaml:"pdf" mapstructure:"pdf"`
	Image int64 `json:"image" yaml:"image" mapstructure:"image"`
	Text  int64 `json:"text" yaml:"text" mapstructure:"text"`
	JSON  int64 `json:"json" yaml:"json" mapstructure:"json"`

	// MaxResponseBytes caps any single generated file.
	MaxResponseBytes int64 `json:"max_response_bytes" yaml:"max_response_bytes" mapstructure:"max_response_bytes"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	Development bool `json:"development" yaml:"development" mapstructure:"development"`
}

// Config groups all settings.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	PDFService PDFServiceConfig `json:"pdf_service" yaml:"pdf_service" mapstructure:"pdf_service"`
	PDF        PDFConfig        `json:"pdf" yaml:"pdf" mapstructure:"pdf"`
	Pandoc     PandocConfig     `json:"pandoc" yaml:"pandoc" mapstructure:"pandoc"`
	Browser    BrowserConfig    `json:"browser" yaml:"browser" mapstructure:"browser"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Limits     LimitsConfig     `json:"limits" yaml:"limits" mapstructure:"limits"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

const mib = 1 << 20

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 50 * mib,
		},
		PDFService: PDFServiceConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "ieee-docgen",
			},
			Enabled:    true,
			MaxRetries: 3,
			Backoff:    500 * time.Millisecond,
		},
		PDF: PDFConfig{Engine: EngineDOCX},
		Pandoc: PandocConfig{
			Binary: "pandoc",
			Image:  "pandoc/core:3.1",
		},
		Browser: BrowserConfig{Headless: true},
		Store: StoreConfig{
			Enabled: true,
			Path:    "data/ieee-docgen.db",
		},
		Limits: LimitsConfig{
			DOCX:             25 * mib,
			PDF:              25 * mib,
			Image:            10 * mib,
			Text:             5 * mib,
			JSON:             5 * mib,
			MaxResponseBytes: 50 * mib,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
