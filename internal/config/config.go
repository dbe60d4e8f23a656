package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docmerge/internal/parser"
)

// Supported output formats.
var Formats = []string{"pdf", "docx", "html"}

type Config struct {
	Port string `yaml:"port"`

	// Auth for rebuild requests, disabled when empty
	APIKey string `yaml:"api_key"`

	// Output
	Formats       []string      `yaml:"formats"`
	WriteHTML     bool          `yaml:"write_html"`
	PDFCommand    string        `yaml:"pdf_command"`
	PDFArgs       []string      `yaml:"pdf_args"`
	RenderTimeout time.Duration `yaml:"render_timeout"`

	// Input
	Charset       string   `yaml:"charset"`
	ClassSuffixes []string `yaml:"class_suffixes"`
	Overview      string   `yaml:"overview"`

	// Presentation
	PageSize    string `yaml:"page_size"`
	PageMargins string `yaml:"page_margins"`
	PageNumbers bool   `yaml:"page_numbers"`
	LinkColor   string `yaml:"link_color"`
	IndentUnit  int    `yaml:"indent_unit"`

	// Serve mode
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	JobTTL        time.Duration `yaml:"job_ttl"`
	MaxQueueSize  int           `yaml:"max_queue_size"`

	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:          "8090",
		Formats:       []string{"pdf"},
		PDFCommand:    "weasyprint",
		PDFArgs:       []string{"{input}", "{output}"},
		RenderTimeout: 5 * time.Minute,
		Charset:       "utf-8",
		ClassSuffixes: []string{".java.html"},
		PageSize:      "A4",
		PageMargins:   "30pt 30pt 50pt 30pt",
		PageNumbers:   true,
		LinkColor:     "blue",
		IndentUnit:    6,
		WatchDebounce: 300 * time.Millisecond,
		JobTTL:        1 * time.Hour,
		MaxQueueSize:  8,
		LogFormat:     "text",
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// a .env file in the working directory and DOCMERGE_* environment variables,
// each layer overriding the previous one.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return cfg, err
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// loadDotEnv sets variables from a .env file without overriding the
// process environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("DOCMERGE_PORT", envOr("PORT", c.Port))
	c.APIKey = envOr("DOCMERGE_API_KEY", c.APIKey)
	c.Formats = envList("DOCMERGE_FORMATS", c.Formats)
	c.WriteHTML = envBool("DOCMERGE_WRITE_HTML", c.WriteHTML)
	c.PDFCommand = envOr("DOCMERGE_PDF_COMMAND", c.PDFCommand)
	c.PDFArgs = envFields("DOCMERGE_PDF_ARGS", c.PDFArgs)
	c.RenderTimeout = envDuration("DOCMERGE_RENDER_TIMEOUT", c.RenderTimeout)

	c.Charset = envOr("DOCMERGE_CHARSET", c.Charset)
	c.ClassSuffixes = envList("DOCMERGE_CLASS_SUFFIXES", c.ClassSuffixes)
	c.Overview = envOr("DOCMERGE_OVERVIEW", c.Overview)

	c.PageSize = envOr("DOCMERGE_PAGE_SIZE", c.PageSize)
	c.PageMargins = envOr("DOCMERGE_PAGE_MARGINS", c.PageMargins)
	c.PageNumbers = envBool("DOCMERGE_PAGE_NUMBERS", c.PageNumbers)
	c.LinkColor = envOr("DOCMERGE_LINK_COLOR", c.LinkColor)
	c.IndentUnit = envInt("DOCMERGE_INDENT_UNIT", c.IndentUnit)

	c.WatchDebounce = envDuration("DOCMERGE_WATCH_DEBOUNCE", c.WatchDebounce)
	c.JobTTL = envDuration("DOCMERGE_JOB_TTL", c.JobTTL)
	c.MaxQueueSize = envInt("DOCMERGE_MAX_QUEUE_SIZE", c.MaxQueueSize)

	c.LogFormat = envOr("DOCMERGE_LOG_FORMAT", c.LogFormat)
}

func (c *Config) normalize() {
	d := Default()
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = d.RenderTimeout
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = d.WatchDebounce
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	for i, f := range c.Formats {
		c.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
}

func (c Config) Validate() error {
	if len(c.Formats) == 0 {
		return fmt.Errorf("at least one output format is required")
	}
	for _, f := range c.Formats {
		if !slices.Contains(Formats, f) {
			return fmt.Errorf("unsupported output format %q (want one of %s)", f, strings.Join(Formats, ", "))
		}
	}
	if c.IndentUnit <= 0 {
		return fmt.Errorf("indent unit must be positive, got %d", c.IndentUnit)
	}
	if c.Charset != "" && !strings.EqualFold(c.Charset, "auto") {
		if _, err := htmlindex.Get(c.Charset); err != nil {
			return fmt.Errorf("unknown charset %q: %w", c.Charset, err)
		}
	}
	if len(c.ClassSuffixes) == 0 {
		return fmt.Errorf("at least one class page suffix is required")
	}
	for _, s := range c.ClassSuffixes {
		if !strings.HasSuffix(s, ".html") {
			return fmt.Errorf("class page suffix %q must end in .html", s)
		}
	}
	if c.Overview != "" && !parser.IsSupportedOverview(c.Overview) {
		return fmt.Errorf("overview %q must be a markdown or html file", c.Overview)
	}
	if slices.Contains(c.Formats, "pdf") && c.PDFCommand == "" {
		return fmt.Errorf("pdf output needs a pdf command")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList reads a comma separated list.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// envFields reads a whitespace separated argument list.
func envFields(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Fields(v)
	}
	return fallback
}
