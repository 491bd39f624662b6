package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/tbourn/skinvault/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 10.0
	defaultBurst   = 20

	// maxBodyBytes caps JSON responses.
	maxBodyBytes = 8 << 20
	// maxErrBody caps how much of an error body is echoed into errors.
	maxErrBody = 256
)

var tracer = otel.Tracer("catalog")

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Outbound catalog requests by operation and outcome.",
	},
	[]string{"op", "outcome"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIURL     string
	ImageURL   string
	TextureURL string
	Timeout    time.Duration
	RPS        float64
	Burst      int
	// MaxAssetBytes caps a single asset download; 0 means unlimited.
	MaxAssetBytes int64
}

// Client is a rate-limited catalog API client. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	apiURL     string
	imageURL   string
	textureURL string
	maxAsset   int64
}

// New creates a new catalog client.
func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst < 1 {
		opts.Burst = defaultBurst
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		logger:     logger.With().Str("component", "catalog").Logger(),
		apiURL:     opts.APIURL,
		imageURL:   opts.ImageURL,
		textureURL: opts.TextureURL,
		maxAsset:   opts.MaxAssetBytes,
	}
}

// Defindexes fetches the flat category list.
func (c *Client) Defindexes(ctx context.Context) ([]domain.CategoryEntry, error) {
	var out []domain.CategoryEntry
	if err := c.getJSON(ctx, "defindexes", "/skin/defindexes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Paintindexes fetches the paintindex list of defindex.
func (c *Client) Paintindexes(ctx context.Context, defindex int) ([]domain.PaintindexEntry, error) {
	q := url.Values{}
	q.Set("defindex", strconv.Itoa(defindex))

	var out []domain.PaintindexEntry
	if err := c.getJSON(ctx, "paintindexes", "/skin/paintindexes", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FloatList fetches the float-ascending candidate list of one
// (defindex, paintindex) pair.
func (c *Client) FloatList(ctx context.Context, defindex, paintindex int) ([]domain.Candidate, error) {
	q := url.Values{}
	q.Set("defindex", strconv.Itoa(defindex))
	q.Set("paintindex", strconv.Itoa(paintindex))

	var out []domain.Candidate
	if err := c.getJSON(ctx, "floatlist", "/skin/floatlist", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Variant fetches the full record of one item instance.
func (c *Client) Variant(ctx context.Context, uuid string) (domain.VariantRecord, error) {
	if uuid == "" {
		return domain.VariantRecord{}, wrapError("variant", "", ErrBadRequest)
	}
	q := url.Values{}
	q.Set("uuid", uuid)

	var raw rawVariant
	if err := c.getJSON(ctx, "variant", "/skin/uuid", q, &raw); err != nil {
		return domain.VariantRecord{}, err
	}
	return raw.toRecord(), nil
}

// ImageURL returns the icon source of the item instance uuid.
func (c *Client) ImageURL(uuid string) string {
	return c.imageURL + "/" + url.PathEscape(uuid) + "_icon.png"
}

// TextureURL returns the texture source of the texture identifier.
func (c *Client) TextureURL(texture string) string {
	return c.textureURL + "/" + url.PathEscape(texture) + "_component1_texture1.png"
}

// OpenAsset starts a streaming download of rawURL. The caller must close the
// returned reader. Reads beyond the size cap fail with ErrTooLarge.
func (c *Client) OpenAsset(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, "asset", rawURL)
	if err != nil {
		return nil, err
	}
	if c.maxAsset <= 0 {
		return resp.Body, nil
	}
	return &cappedBody{rc: resp.Body, remaining: c.maxAsset}, nil
}

// getJSON executes a GET against the catalog API and decodes the body into dst.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, dst any) error {
	u := c.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	resp, err := c.do(ctx, op, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		requestsTotal.WithLabelValues(op, "decode_error").Inc()
		return wrapError(op, u, fmt.Errorf("parse response: %w", err))
	}
	return nil
}

// do executes a rate-limited GET and maps non-200 statuses to sentinel
// errors. On success the response body is left open for the caller.
func (c *Client) do(ctx context.Context, op, rawURL string) (*http.Response, error) {
	ctx, span := tracer.Start(ctx, "catalog."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.url", rawURL))

	fail := func(err error) (*http.Response, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		requestsTotal.WithLabelValues(op, outcome(err)).Inc()
		return nil, wrapError(op, rawURL, err)
	}

	// Wait for rate limit
	if err := c.limiter.Wait(ctx); err != nil {
		return fail(fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json, image/*")
	req.Header.Set("User-Agent", "skinvault/1.0")

	c.logger.Debug().Str("op", op).Str("url", rawURL).Msg("catalog request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(fmt.Errorf("execute request: %w", err))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusOK {
		requestsTotal.WithLabelValues(op, "ok").Inc()
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fail(ErrNotFound)
	case http.StatusTooManyRequests:
		return fail(ErrRateLimited)
	case http.StatusBadRequest:
		return fail(ErrBadRequest)
	default:
		if resp.StatusCode >= 500 {
			return fail(ErrServer)
		}
		return fail(&StatusError{Code: resp.StatusCode, Body: string(body)})
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrServer):
		return "server_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// cappedBody fails reads once more than remaining bytes were consumed.
type cappedBody struct {
	rc        io.ReadCloser
	remaining int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, ErrTooLarge
	}
	// Read one byte past the cap to detect oversize payloads.
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

func (b *cappedBody) Close() error { return b.rc.Close() }
