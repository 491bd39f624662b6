package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

// Scrub patterns, applied in order. UUIDs go first so the loose phone
// pattern never eats their digit groups; the phone pattern is digits-only
// for the same reason.
var scrubbers = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// RedactOptions tunes RedactingLogger.
//
// MaskHeaders names headers whose values are dropped entirely, on top of
// Authorization, Cookie and Set-Cookie (case-insensitive). QuietPaths are
// path prefixes whose successful requests log at debug, so asset and probe
// traffic does not drown the command logs.
type RedactOptions struct {
	MaskHeaders []string
	QuietPaths  []string
}

type redactor struct {
	masked map[string]struct{}
	quiet  []string
}

func newRedactor(opts RedactOptions) *redactor {
	rd := &redactor{masked: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			rd.masked[h] = struct{}{}
		}
	}
	for _, p := range opts.QuietPaths {
		if p = strings.TrimSpace(p); p != "" {
			rd.quiet = append(rd.quiet, p)
		}
	}
	return rd
}

func (rd *redactor) scrub(s string) string {
	for _, sc := range scrubbers {
		if s == "" {
			break
		}
		s = sc.re.ReplaceAllString(s, sc.repl)
	}
	return s
}

func (rd *redactor) headers(h http.Header) *zerolog.Event {
	d := zerolog.Dict()
	for k, vv := range h {
		if _, ok := rd.masked[strings.ToLower(k)]; ok {
			d.Str(k, redacted)
			continue
		}
		d.Str(k, rd.scrub(strings.Join(vv, ", ")))
	}
	return d
}

func (rd *redactor) isQuiet(path string) bool {
	for _, p := range rd.quiet {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// event picks the level: error for 5xx or recorded gin errors, warn for
// 4xx, debug for successful quiet paths, info otherwise.
func (rd *redactor) event(c *gin.Context) *zerolog.Event {
	status := c.Writer.Status()
	switch {
	case status >= http.StatusInternalServerError || len(c.Errors) > 0:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	case rd.isQuiet(c.Request.URL.Path):
		return log.Debug()
	default:
		return log.Info()
	}
}

// RedactingLogger writes one access line per request through the global
// zerolog logger. Bodies are never logged; the query string, header values
// and recorded gin errors pass through the scrubbers, and masked headers are
// replaced whole.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()
		query := rd.scrub(c.Request.URL.RawQuery)
		hdrs := rd.headers(c.Request.Header)

		c.Next()

		path := pathOf(c)
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		ev := rd.event(c)
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", rd.scrub(c.Errors.String()))
		}
		ev.Str("request_id", reqID).
			Str("caller", c.GetString(callerKey)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Dict("headers", hdrs).
			Msg("http_request")
	}
}
