package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tbourn/skinvault/internal/config"
)

// recordingExporter keeps exported span names and counts shutdowns.
type recordingExporter struct {
	mu        sync.Mutex
	names     []string
	shutdowns int
}

func (e *recordingExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range spans {
		e.names = append(e.names, s.Name())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdowns++
	return nil
}

func (e *recordingExporter) exported() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.names...)
}

func tracingCfg() config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "skinvault-test",
		SampleRatio: 1,
	}
}

// stubSeams restores the exporter and resource factories plus the otel
// globals when the test ends.
func stubSeams(t *testing.T) {
	t.Helper()
	prevExp, prevRes := newExporter, newResource
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		newExporter, newResource = prevExp, prevRes
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestSetupTracing_DisabledLeavesGlobals(t *testing.T) {
	stubSeams(t)
	before := otel.GetTracerProvider()
	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		t.Fatal("exporter built while tracing is disabled")
		return nil, nil
	}

	cfg := tracingCfg()
	cfg.Enabled = false
	shutdown, err := SetupTracing(context.Background(), cfg, "v1")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.Equal(t, before, otel.GetTracerProvider())
}

func TestSetupTracing_FlushesSpansOnShutdown(t *testing.T) {
	stubSeams(t)
	exp := &recordingExporter{}
	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return exp, nil
	}

	shutdown, err := SetupTracing(context.Background(), tracingCfg(), "v1.2.3")
	require.NoError(t, err)
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok, "global provider should be the SDK provider")

	fields := otel.GetTextMapPropagator().Fields()
	require.Contains(t, fields, "traceparent")
	require.Contains(t, fields, "baggage")

	_, span := otel.Tracer("services/paints").Start(context.Background(), "paints.scrape")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))
	require.Equal(t, []string{"paints.scrape"}, exp.exported())
	require.Equal(t, 1, exp.shutdowns)
}

func TestSetupTracing_ZeroRatioDropsRootSpans(t *testing.T) {
	stubSeams(t)
	exp := &recordingExporter{}
	newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return exp, nil
	}

	cfg := tracingCfg()
	cfg.SampleRatio = 0
	shutdown, err := SetupTracing(context.Background(), cfg, "v1")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "dropped")
	require.False(t, span.SpanContext().IsSampled())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Empty(t, exp.exported())
}

func TestSetupTracing_Failures(t *testing.T) {
	boom := errors.New("boom")

	cases := []struct {
		name          string
		expErr        error
		resErr        error
		wantShutdowns int
	}{
		{name: "exporter", expErr: boom},
		{name: "resource shuts exporter down", resErr: boom, wantShutdowns: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stubSeams(t)
			before := otel.GetTracerProvider()
			exp := &recordingExporter{}
			newExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
				if tc.expErr != nil {
					return nil, tc.expErr
				}
				return exp, nil
			}
			newResource = func(context.Context, string, string) (*resource.Resource, error) {
				if tc.resErr != nil {
					return nil, tc.resErr
				}
				return resource.Empty(), nil
			}

			shutdown, err := SetupTracing(context.Background(), tracingCfg(), "v1")
			require.ErrorIs(t, err, boom)
			require.Nil(t, shutdown)
			require.Equal(t, tc.wantShutdowns, exp.shutdowns)
			require.Equal(t, before, otel.GetTracerProvider())
		})
	}
}

func TestNewResource_ServiceAttributes(t *testing.T) {
	res, err := newResource(context.Background(), "skinvault", "v9")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "skinvault", attrs["service.name"])
	require.Equal(t, "v9", attrs["service.version"])
}

func TestGRPCOptions(t *testing.T) {
	insecure := tracingCfg()
	secure := tracingCfg()
	secure.Insecure = false

	require.Len(t, grpcOptions(insecure), 2)
	require.Len(t, grpcOptions(secure), 2)
}

func TestNewExporter_DoesNotDial(t *testing.T) {
	// The gRPC client connects lazily, so construction succeeds without a
	// collector listening.
	exp, err := newExporter(context.Background(), tracingCfg())
	require.NoError(t, err)
	require.NotNil(t, exp)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = exp.Shutdown(ctx)
}
