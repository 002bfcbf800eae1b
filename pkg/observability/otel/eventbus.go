package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/geoyee/eventbus/pkg/core"
	"github.com/geoyee/eventbus/pkg/property"
)

const messagingSystem = "eventbus"

// TraceContextKey is the bundle key carrying the producer span context from
// PublishWithSpan to WrapCallback. WrapCallback and TracedBus.GetLatest
// remove it before handing bundles out.
const TraceContextKey = "otel.trace_context"

// PublishWithSpan publishes props inside a producer span. The span context
// travels with the bundle so consumer spans can link to it; props itself is
// not modified.
func PublishWithSpan(ctx context.Context, eventBus core.EventBus, topic string, props property.Properties) {
	if !IsInitialized() {
		eventBus.Publish(topic, props)
		return
	}

	spanCtx, span := StartSpan(ctx, "eventbus.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String(messagingSystem),
			semconv.MessagingDestinationKey.String(topic),
			semconv.MessagingOperationKey.String("publish"),
			attribute.Int("eventbus.properties", len(props)),
			attribute.Int("eventbus.subscribers", eventBus.Subscribers(topic)),
		),
	)
	defer span.End()

	eventBus.Publish(topic, withTraceContext(spanCtx, props))
	span.SetStatus(codes.Ok, "OK")
}

// WrapCallback runs cb inside a consumer span, linked to the producer span
// when the bundle carries one. A panic is recorded on the span and then
// re-raised so the bus still reports it.
func WrapCallback(topic string, cb core.Callback) core.Callback {
	return func(props property.Properties) {
		carrier, hasCarrier := takeTraceContext(props)
		if !IsInitialized() {
			cb(props)
			return
		}

		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				semconv.MessagingSystemKey.String(messagingSystem),
				semconv.MessagingDestinationKey.String(topic),
				semconv.MessagingOperationKey.String("process"),
			),
		}
		if hasCarrier {
			producer := otel.GetTextMapPropagator().Extract(context.Background(), carrier)
			if link := trace.LinkFromContext(producer); link.SpanContext.IsValid() {
				opts = append(opts, trace.WithLinks(link))
			}
		}
		_, span := StartSpan(context.Background(), "eventbus.consume", opts...)
		defer span.End()

		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				panic(r)
			}
		}()

		cb(props)
		span.SetStatus(codes.Ok, "OK")
	}
}

// withTraceContext returns a shallow copy of props carrying the span context of ctx
func withTraceContext(ctx context.Context, props property.Properties) property.Properties {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return props
	}

	out := make(property.Properties, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	out[TraceContextKey] = property.Of(carrier)
	return out
}

// takeTraceContext removes the trace context entry from props
func takeTraceContext(props property.Properties) (propagation.MapCarrier, bool) {
	p, ok := props[TraceContextKey]
	if !ok {
		return nil, false
	}
	delete(props, TraceContextKey)
	carrier, err := property.Value[propagation.MapCarrier](p)
	if err != nil {
		return nil, false
	}
	return carrier, true
}

// TracedBus decorates an EventBus with publish and consume spans
type TracedBus struct {
	core.EventBus
}

// NewTracedBus wraps eb
func NewTracedBus(eb core.EventBus) *TracedBus {
	return &TracedBus{EventBus: eb}
}

func (b *TracedBus) Listen(topic string, cb core.Callback) core.SubscriptionID {
	core.FailFast(core.ValidateCallback(cb))
	return b.EventBus.Listen(topic, WrapCallback(topic, cb))
}

func (b *TracedBus) Publish(topic string, props property.Properties) {
	PublishWithSpan(context.Background(), b.EventBus, topic, props)
}

// PublishContext publishes with the span in ctx as parent
func (b *TracedBus) PublishContext(ctx context.Context, topic string, props property.Properties) {
	PublishWithSpan(ctx, b.EventBus, topic, props)
}

// GetLatest returns the latest bundle without the trace context entry
func (b *TracedBus) GetLatest(topic string) (property.Properties, bool) {
	props, ok := b.EventBus.GetLatest(topic)
	if ok {
		takeTraceContext(props)
	}
	return props, ok
}
