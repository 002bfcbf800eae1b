package otel

import (
	"context"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const spanContextKey = "span_context"

// HTTPMiddleware traces every request served by next
func HTTPMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !IsInitialized() {
			next(ctx)
			return
		}

		propagator := otel.GetTextMapPropagator()
		parentCtx := propagator.Extract(context.Background(), requestHeaderCarrier{&ctx.Request.Header})

		spanCtx, span := StartSpan(parentCtx, "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(string(ctx.Method())),
				semconv.HTTPTargetKey.String(string(ctx.RequestURI())),
				semconv.HTTPRouteKey.String(string(ctx.Path())),
			),
		)
		defer span.End()

		ctx.SetUserValue(spanContextKey, spanCtx)
		next(ctx)

		statusCode := ctx.Response.StatusCode()
		span.SetAttributes(
			semconv.HTTPStatusCodeKey.Int(statusCode),
			attribute.Int("http.response_size", len(ctx.Response.Body())),
		)
		if statusCode >= 400 {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(statusCode))
		} else {
			span.SetStatus(codes.Ok, "OK")
		}

		propagator.Inject(spanCtx, responseHeaderCarrier{&ctx.Response.Header})
	}
}

// ContextFromRequest returns the context carrying the request span, or
// context.Background when the request was not traced.
func ContextFromRequest(ctx *fasthttp.RequestCtx) context.Context {
	if c, ok := ctx.UserValue(spanContextKey).(context.Context); ok {
		return c
	}
	return context.Background()
}

// requestHeaderCarrier implements propagation.TextMapCarrier for fasthttp request headers
type requestHeaderCarrier struct {
	headers *fasthttp.RequestHeader
}

func (c requestHeaderCarrier) Get(key string) string {
	return string(c.headers.Peek(key))
}

func (c requestHeaderCarrier) Set(key, value string) {
	c.headers.Set(key, value)
}

func (c requestHeaderCarrier) Keys() []string {
	var keys []string
	c.headers.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// responseHeaderCarrier implements propagation.TextMapCarrier for fasthttp response headers
type responseHeaderCarrier struct {
	headers *fasthttp.ResponseHeader
}

func (c responseHeaderCarrier) Get(key string) string {
	return string(c.headers.Peek(key))
}

func (c responseHeaderCarrier) Set(key, value string) {
	c.headers.Set(key, value)
}

func (c responseHeaderCarrier) Keys() []string {
	var keys []string
	c.headers.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}
