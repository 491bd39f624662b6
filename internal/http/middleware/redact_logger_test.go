package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func mustContain(t *testing.T, logs string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(logs, w) {
			t.Fatalf("log missing %s\n%s", w, logs)
		}
	}
}

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-resp"); c.Next() })
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key", ""}}))
	r.GET("/api/v1/paints/:uuid", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/paints/123?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set(requestIDHeader, "rid-req")
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	mustContain(t, logs,
		`"level":"info"`,
		`"message":"http_request"`,
		`"path":"/api/v1/paints/:uuid"`,
		`"request_id":"rid-resp"`,
		`[REDACTED:email]`, `[REDACTED:phone]`, `[REDACTED:id]`,
		`"Authorization":"[REDACTED]"`,
		`"Cookie":"[REDACTED]"`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Custom":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`,
	)
	for _, leak := range []string{"secret", "shhh", "example.com", "426614174000"} {
		if strings.Contains(logs, leak) {
			t.Fatalf("log leaks %q: %s", leak, logs)
		}
	}
}

func TestRedactingLogger_LevelsAndRequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/api/v1/categories/:defindex", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.POST("/api/v1/categories/scrape", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	cases := []struct {
		method, path, rid, level string
	}{
		{http.MethodGet, "/api/v1/categories/99", "rid-warn", "warn"},
		{http.MethodPost, "/api/v1/categories/scrape", "rid-err", "error"},
	}
	for _, tc := range cases {
		buf.Reset()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set(requestIDHeader, tc.rid)
		r.ServeHTTP(httptest.NewRecorder(), req)
		mustContain(t, buf.String(), `"level":"`+tc.level+`"`, `"request_id":"`+tc.rid+`"`)
	}
}

func TestRedactingLogger_QuietPathsAndCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{QuietPaths: []string{"/static", " "}}))
	r.GET("/static/*filepath", func(c *gin.Context) { c.String(http.StatusOK, "img") })
	r.GET("/static-missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.POST("/api/v1/paints/scrape", func(c *gin.Context) {
		c.Set(callerKey, adminCaller)
		_ = c.Error(errors.New("upstream contact@example.com failed"))
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static/images/a.jpg", nil))
	if buf.Len() != 0 {
		t.Fatalf("successful quiet path should log at debug only, got: %s", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/static-missing", nil))
	mustContain(t, buf.String(), `"level":"warn"`)

	// Recorded errors raise the level even on a 200.
	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/paints/scrape", nil))
	logs := buf.String()
	mustContain(t, logs, `"level":"error"`, `"caller":"admin"`, "[REDACTED:email]")
	if strings.Contains(logs, "contact@example.com") {
		t.Fatalf("gin errors must be scrubbed, got: %s", logs)
	}
}

func TestRedactor_Scrub(t *testing.T) {
	rd := newRedactor(RedactOptions{})
	cases := []struct{ in, want string }{
		{"", ""},
		{"defindex=7&paintindex=44", "defindex=7&paintindex=44"},
		{"who=ops@example.org", "who=[REDACTED:email]"},
		{"call 212 555 1212 now", "call [REDACTED:phone] now"},
		{"123e4567-e89b-12d3-a456-426614174000", "[REDACTED:id]"},
	}
	for _, tc := range cases {
		if got := rd.scrub(tc.in); got != tc.want {
			t.Errorf("scrub(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
