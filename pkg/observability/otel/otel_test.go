package otel

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/geoyee/eventbus/pkg/config"
	"github.com/geoyee/eventbus/pkg/core"
	"github.com/geoyee/eventbus/pkg/property"
)

func setupRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	require.NoError(t, initialize(context.Background(), DefaultConfig(), sdktrace.NewSimpleSpanProcessor(exp)))
	t.Cleanup(func() {
		_ = Shutdown(context.Background())
	})
	return exp
}

func spanNamed(spans tracetest.SpanStubs, name string) (tracetest.SpanStub, bool) {
	for _, s := range spans {
		if s.Name == name {
			return s, true
		}
	}
	return tracetest.SpanStub{}, false
}

func TestConfigFrom(t *testing.T) {
	c := ConfigFrom(config.TracingConfig{
		Exporter:   ExporterZipkin,
		Endpoint:   "http://zipkin:9411/api/v2/spans",
		SampleRate: 0.25,
	}, "2.0.0")

	assert.Equal(t, "eventbus", c.ServiceName)
	assert.Equal(t, "2.0.0", c.ServiceVersion)
	assert.Equal(t, ExporterZipkin, c.Exporter)
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 0.25, c.SampleRate)
	assert.NoError(t, c.Validate())
}

func TestConfig_Validate(t *testing.T) {
	c := DefaultConfig()
	c.ServiceName = ""
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.SampleRate = 1.5
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Exporter = "kafka"
	assert.ErrorContains(t, c.Validate(), "unsupported exporter")
}

func TestInitialize(t *testing.T) {
	assert.False(t, IsInitialized())

	require.NoError(t, Initialize(context.Background(), DefaultConfig()))
	assert.True(t, IsInitialized())
	assert.Error(t, Initialize(context.Background(), DefaultConfig()), "second Initialize fails")

	require.NoError(t, Shutdown(context.Background()))
	assert.False(t, IsInitialized())
	assert.NoError(t, Shutdown(context.Background()), "Shutdown is idempotent")

	bad := DefaultConfig()
	bad.Exporter = "kafka"
	assert.Error(t, Initialize(context.Background(), bad))
	assert.False(t, IsInitialized())
}

func TestNewExporter(t *testing.T) {
	for _, name := range []string{ExporterJaeger, ExporterZipkin, ExporterStdout, ExporterNone} {
		c := DefaultConfig()
		c.Exporter = name
		exp, err := newExporter(c)
		require.NoError(t, err, name)
		assert.NoError(t, exp.Shutdown(context.Background()), name)
	}
}

func TestTracer_NoopBeforeInitialize(t *testing.T) {
	_, span := StartSpan(context.Background(), "ignored")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestPublishWithSpan(t *testing.T) {
	exp := setupRecorder(t)
	eb := core.NewEventBus(core.WithLogger(core.NewNopLogger()))
	defer eb.Close(context.Background())
	eb.Listen("orders", func(property.Properties) {})

	PublishWithSpan(context.Background(), eb, "orders", property.Properties{"id": property.Of(1)})

	span, ok := spanNamed(exp.GetSpans(), "eventbus.publish")
	require.True(t, ok)
	assert.Equal(t, trace.SpanKindProducer, span.SpanKind)
	assert.Equal(t, codes.Ok, span.Status.Code)

	attrs := map[string]interface{}{}
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "orders", attrs["messaging.destination"])
	assert.Equal(t, int64(1), attrs["eventbus.subscribers"])

	latest, ok := eb.GetLatest("orders")
	require.True(t, ok)
	assert.Equal(t, 1, property.MustValue[int](latest["id"]))
}

func TestTracedBus(t *testing.T) {
	exp := setupRecorder(t)
	bus := NewTracedBus(core.NewEventBus(core.WithLogger(core.NewNopLogger())))
	defer bus.Close(context.Background())

	received := make(chan property.Properties, 1)
	bus.Listen("orders", func(props property.Properties) { received <- props })
	original := property.Properties{"id": property.Of(7)}
	bus.PublishContext(context.Background(), "orders", original)

	select {
	case props := <-received:
		assert.Equal(t, []string{"id"}, props.Keys())
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
	assert.Equal(t, []string{"id"}, original.Keys(), "the published bundle is not modified")

	latest, ok := bus.GetLatest("orders")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, latest.Keys())

	var consume tracetest.SpanStub
	require.Eventually(t, func() bool {
		var found bool
		consume, found = spanNamed(exp.GetSpans(), "eventbus.consume")
		return found
	}, time.Second, 5*time.Millisecond)

	publish, ok := spanNamed(exp.GetSpans(), "eventbus.publish")
	require.True(t, ok)
	require.Len(t, consume.Links, 1)
	assert.Equal(t, publish.SpanContext.TraceID(), consume.Links[0].SpanContext.TraceID())
	assert.Equal(t, publish.SpanContext.SpanID(), consume.Links[0].SpanContext.SpanID())

	assert.Panics(t, func() { bus.Listen("orders", nil) })
}

func TestWrapCallback_StripsTraceContextWhenUninitialized(t *testing.T) {
	var got property.Properties
	cb := WrapCallback("orders", func(props property.Properties) { got = props })
	cb(property.Properties{
		"id":            property.Of(1),
		TraceContextKey: property.Of(propagation.MapCarrier{"traceparent": "x"}),
	})
	assert.Equal(t, []string{"id"}, got.Keys())
}

func TestWrapCallback_RecordsPanic(t *testing.T) {
	exp := setupRecorder(t)
	cb := WrapCallback("orders", func(property.Properties) { panic("boom") })

	assert.PanicsWithValue(t, "boom", func() { cb(property.Properties{}) })

	span, ok := spanNamed(exp.GetSpans(), "eventbus.consume")
	require.True(t, ok)
	assert.Equal(t, codes.Error, span.Status.Code)
	assert.Equal(t, "boom", span.Status.Description)
}

func TestWrapCallback_Uninitialized(t *testing.T) {
	called := false
	WrapCallback("orders", func(property.Properties) { called = true })(nil)
	assert.True(t, called)
}

func TestHTTPMiddleware(t *testing.T) {
	exp := setupRecorder(t)

	var traced bool
	handler := HTTPMiddleware(func(ctx *fasthttp.RequestCtx) {
		traced = trace.SpanFromContext(ContextFromRequest(ctx)).SpanContext().IsValid()
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	ln := fasthttputil.NewInmemoryListener()
	defer ln.Close()
	go func() {
		_ = fasthttp.Serve(ln, handler)
	}()
	client := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://bus/latest/orders")
	require.NoError(t, client.Do(req, resp))

	assert.Equal(t, fasthttp.StatusNotFound, resp.StatusCode())
	assert.NotEmpty(t, resp.Header.Peek("traceparent"))
	assert.True(t, traced)

	span, ok := spanNamed(exp.GetSpans(), "http.request")
	require.True(t, ok)
	assert.Equal(t, codes.Error, span.Status.Code)
}

func TestContextFromRequest_Untraced(t *testing.T) {
	var ctx fasthttp.RequestCtx
	assert.Equal(t, context.Background(), ContextFromRequest(&ctx))
}
