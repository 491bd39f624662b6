package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIBasePath)
	assert.Equal(t, "skinvault.db", cfg.DBPath)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, PipelineConfig{
		DefaultChunk:     5,
		FetchConcurrency: 8,
		AssetConcurrency: 4,
		AssetDelay:       500 * time.Millisecond,
		ImageSize:        256,
		ImageQuality:     100,
		MaxAssetBytes:    20 << 20,
	}, cfg.Pipeline)
	assert.Empty(t, cfg.Security.AdminToken)
	assert.Empty(t, cfg.Catalog.APIURL)
	assert.Equal(t, filepath.Join("public", "images"), cfg.ImagesDir())
	assert.Equal(t, filepath.Join("public", "textures"), cfg.TexturesDir())
}

func TestLoad_Overrides(t *testing.T) {
	for k, v := range map[string]string{
		"PORT":                    "8088",
		"WRITE_TIMEOUT":           "3m",
		"GIN_MODE":                "weird",
		"LOG_LEVEL":               "WARNING",
		"API_BASE_PATH":           "api/v2/",
		"PUBLIC_DIR":              "/srv/static",
		"EXTERNAL_API_URL":        "https://catalog.example/",
		"EXTERNAL_TEXTURE_URL":    "https://tex.example//",
		"CATALOG_RPS":             "2.5",
		"SCRAPE_CHUNK_DEFAULT":    "7",
		"ASSET_DELAY":             "0s",
		"CORS_ALLOWED_ORIGINS":    " https://a.com , , http://b ",
		"ADMIN_TOKEN":             "  s3cret ",
		"OTEL_ENABLED":            "on",
		"OTEL_TRACES_SAMPLER_ARG": "0.75",
	} {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Port)
	assert.Equal(t, 3*time.Minute, cfg.WriteTimeout)
	assert.Equal(t, "release", cfg.GinMode)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/api/v2", cfg.APIBasePath)
	assert.Equal(t, "https://catalog.example", cfg.Catalog.APIURL)
	assert.Equal(t, "https://tex.example", cfg.Catalog.TextureURL)
	assert.Equal(t, 2.5, cfg.Catalog.RPS)
	assert.Equal(t, 7, cfg.Pipeline.DefaultChunk)
	assert.Zero(t, cfg.Pipeline.AssetDelay)
	assert.Equal(t, []string{"https://a.com", "http://b"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Security.AdminToken)
	assert.True(t, cfg.OTEL.Enabled)
	assert.Equal(t, 0.75, cfg.OTEL.SampleRatio)
	assert.Equal(t, filepath.Join("/srv/static", "images"), cfg.ImagesDir())
}

func TestLoad_BlankValuesTakeDefaults(t *testing.T) {
	t.Setenv("PORT", "   ")
	t.Setenv("RATE_BURST", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 10, cfg.RateBurst)
}

func TestLoad_MalformedValues(t *testing.T) {
	cases := map[string]string{
		"RATE_RPS":      "x",
		"IMAGE_SIZE":    "big",
		"ASSET_DELAY":   "soon",
		"LOG_PRETTY":    "maybe",
		"CATALOG_BURST": "1.5",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), k)
			assert.Contains(t, err.Error(), v)
		})
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"bad log level", "LOG_LEVEL", "loud"},
		{"negative timeout", "READ_TIMEOUT", "-1s"},
		{"zero header bytes", "MAX_HEADER_BYTES", "0"},
		{"zero catalog timeout", "CATALOG_TIMEOUT", "0s"},
		{"zero catalog rps", "CATALOG_RPS", "0"},
		{"zero burst", "CATALOG_BURST", "0"},
		{"zero chunk", "SCRAPE_CHUNK_DEFAULT", "0"},
		{"zero fetch concurrency", "FETCH_CONCURRENCY", "0"},
		{"zero asset concurrency", "ASSET_CONCURRENCY", "0"},
		{"negative delay", "ASSET_DELAY", "-5ms"},
		{"zero image size", "IMAGE_SIZE", "0"},
		{"quality too high", "IMAGE_QUALITY", "101"},
		{"zero asset bytes", "MAX_ASSET_BYTES", "0"},
		{"negative rate", "RATE_RPS", "-1"},
		{"zero rate burst", "RATE_BURST", "0"},
		{"negative hsts", "HSTS_MAX_AGE", "-1h"},
		{"sample ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), tc.key+" must"), "got %v", err)
		})
	}
}

func TestLoad_ReportsEveryViolation(t *testing.T) {
	t.Setenv("IMAGE_SIZE", "0")
	t.Setenv("RATE_BURST", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAGE_SIZE must be >= 1")
	assert.Contains(t, err.Error(), "RATE_BURST must be >= 1")
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	assert.Panics(t, func() { _ = MustLoad() })
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"  ":       "/",
		"/":        "/",
		"api":      "/api",
		"/api/":    "/api",
		"/api/v1/": "/api/v1",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeBasePath(in), "input %q", in)
	}
}

func TestConfig_CheckServe(t *testing.T) {
	cases := []struct {
		name  string
		mode  string
		token string
		want  error
	}{
		{"release without token", "release", "", ErrAdminTokenRequired},
		{"release with token", "release", "s3cret", nil},
		{"debug without token", "debug", "", nil},
		{"test without token", "test", "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GIN_MODE", tc.mode)
			t.Setenv("ADMIN_TOKEN", tc.token)
			cfg, err := Load()
			require.NoError(t, err)
			assert.ErrorIs(t, cfg.CheckServe(), tc.want)
		})
	}
}

func TestConfig_CheckServe_DefaultsRefuse(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.CheckServe(), ErrAdminTokenRequired)
}
