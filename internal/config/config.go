// Package config loads the application settings from environment variables.
// Every field names its variable in an env tag; validate tags hold the
// constraints, and failures are reported by variable name.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`
}

// SecurityConfig holds HSTS and the admin token guarding mutating commands.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" validate:"gte=0"`
	AdminToken string        `env:"ADMIN_TOKEN"` // empty disables the check
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"` // host:port
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName string  `env:"OTEL_SERVICE_NAME"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" validate:"gte=0,lte=1"`
}

// CatalogConfig defines the upstream catalog and asset origins.
type CatalogConfig struct {
	APIURL     string        `env:"EXTERNAL_API_URL"`
	ImageURL   string        `env:"EXTERNAL_IMAGE_URL"`
	TextureURL string        `env:"EXTERNAL_TEXTURE_URL"`
	Timeout    time.Duration `env:"CATALOG_TIMEOUT" validate:"gt=0"`
	RPS        float64       `env:"CATALOG_RPS" validate:"gt=0"`
	Burst      int           `env:"CATALOG_BURST" validate:"gte=1"`
}

// PipelineConfig tunes the scrape and asset pipelines.
type PipelineConfig struct {
	DefaultChunk     int           `env:"SCRAPE_CHUNK_DEFAULT" validate:"gte=1"`
	FetchConcurrency int           `env:"FETCH_CONCURRENCY" validate:"gte=1"`
	AssetConcurrency int           `env:"ASSET_CONCURRENCY" validate:"gte=1"`
	AssetDelay       time.Duration `env:"ASSET_DELAY" validate:"gte=0"` // between fetch and transform
	ImageSize        int           `env:"IMAGE_SIZE" validate:"gte=1"`  // thumbnail edge in pixels
	ImageQuality     int           `env:"IMAGE_QUALITY" validate:"gte=1,lte=100"`
	MaxAssetBytes    int64         `env:"MAX_ASSET_BYTES" validate:"gt=0"`
}

// Config holds all configuration values for the application.
type Config struct {
	Port              string        `env:"PORT" validate:"required"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" validate:"gt=0"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" validate:"gt=0"` // scrapes can take minutes
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" validate:"gt=0"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" validate:"gt=0"`
	GinMode           string        `env:"GIN_MODE"`

	LogLevel    string `env:"LOG_LEVEL" validate:"oneof=debug info warn error fatal panic"`
	LogPretty   bool   `env:"LOG_PRETTY"`
	APIBasePath string `env:"API_BASE_PATH"`

	DBPath    string `env:"DB_PATH" validate:"required"`
	PublicDir string `env:"PUBLIC_DIR" validate:"required"` // root of images/ and textures/

	Catalog  CatalogConfig
	Pipeline PipelineConfig

	// Inbound rate limiting. A zero rate rejects everything past the burst.
	RateRPS   float64 `env:"RATE_RPS" validate:"gte=0"`
	RateBurst int     `env:"RATE_BURST" validate:"gte=1"`

	CORS     CORSConfig
	Security SecurityConfig
	OTEL     OTELConfig
}

// ErrAdminTokenRequired rejects serving the admin commands in release mode
// without a token.
var ErrAdminTokenRequired = errors.New("ADMIN_TOKEN must be set when GIN_MODE=release")

// CheckServe applies the rules that only matter when the HTTP API is
// exposed: release mode needs ADMIN_TOKEN, since an empty token leaves the
// scrape and rebuild routes open.
func (c Config) CheckServe() error {
	if c.GinMode == "release" && c.Security.AdminToken == "" {
		return ErrAdminTokenRequired
	}
	return nil
}

// ImagesDir is the flat output directory of rebuilt thumbnails.
func (c Config) ImagesDir() string { return filepath.Join(c.PublicDir, "images") }

// TexturesDir is the root of the per-defindex texture directories.
func (c Config) TexturesDir() string { return filepath.Join(c.PublicDir, "textures") }

// MustLoad is Load for callers that cannot continue without a config.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the environment, applies defaults and validates the result.
// A set but malformed value is an error rather than a silent default.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              e.str("PORT", "9000"),
		ReadTimeout:       e.dur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.dur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.dur("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:       e.dur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           ginMode(e.str("GIN_MODE", "release")),

		LogLevel:    logLevel(e.str("LOG_LEVEL", "info")),
		LogPretty:   e.bool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(e.str("API_BASE_PATH", "/api/v1")),

		DBPath:    e.str("DB_PATH", "skinvault.db"),
		PublicDir: e.str("PUBLIC_DIR", "public"),

		Catalog: CatalogConfig{
			APIURL:     e.url("EXTERNAL_API_URL"),
			ImageURL:   e.url("EXTERNAL_IMAGE_URL"),
			TextureURL: e.url("EXTERNAL_TEXTURE_URL"),
			Timeout:    e.dur("CATALOG_TIMEOUT", 30*time.Second),
			RPS:        e.float("CATALOG_RPS", 10),
			Burst:      e.int("CATALOG_BURST", 20),
		},
		Pipeline: PipelineConfig{
			DefaultChunk:     e.int("SCRAPE_CHUNK_DEFAULT", 5),
			FetchConcurrency: e.int("FETCH_CONCURRENCY", 8),
			AssetConcurrency: e.int("ASSET_CONCURRENCY", 4),
			AssetDelay:       e.dur("ASSET_DELAY", 500*time.Millisecond),
			ImageSize:        e.int("IMAGE_SIZE", 256),
			ImageQuality:     e.int("IMAGE_QUALITY", 100),
			MaxAssetBytes:    int64(e.int("MAX_ASSET_BYTES", 20<<20)),
		},

		RateRPS:   e.float("RATE_RPS", 5),
		RateBurst: e.int("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.str("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.bool("ENABLE_HSTS", false),
			HSTSMaxAge: e.dur("HSTS_MAX_AGE", 180*24*time.Hour),
			AdminToken: e.str("ADMIN_TOKEN", ""),
		},
		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.str("OTEL_SERVICE_NAME", "skinvault"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	if err := errors.Join(e.errs...); err != nil {
		return cfg, err
	}
	return cfg, check(cfg)
}

var checker = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}()

// check reports every violated constraint by its variable name.
func check(cfg Config) error {
	err := checker.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s %s", fe.Field(), describe(fe)))
	}
	return errors.Join(errs...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be > " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	default:
		return "is invalid"
	}
}

// env reads variables and collects parse errors. Unset and blank values
// take the default.
type env struct {
	errs []error
}

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

// url reads an origin without its trailing slashes.
func (e *env) url(k string) string {
	return strings.TrimRight(e.str(k, ""), "/")
}

func (e *env) int(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", k, v))
		return def
	}
	return i
}

func (e *env) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a number", k, v))
		return def
	}
	return f
}

func (e *env) dur(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", k, v))
		return def
	}
	return d
}

func (e *env) bool(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", k, v))
	return def
}

func logLevel(s string) string {
	s = strings.ToLower(s)
	if s == "warning" {
		return "warn"
	}
	return s
}

// ginMode falls back to release for anything gin would reject.
func ginMode(s string) string {
	switch s = strings.ToLower(s); s {
	case "debug", "release", "test":
		return s
	}
	return "release"
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing ones.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
