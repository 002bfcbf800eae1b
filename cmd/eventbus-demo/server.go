package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/fx"

	"github.com/geoyee/eventbus/pkg/config"
	"github.com/geoyee/eventbus/pkg/core"
	"github.com/geoyee/eventbus/pkg/observability/otel"
	"github.com/geoyee/eventbus/pkg/observability/prometheus"
)

const latestPrefix = "/latest/"

type topicInfo struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}

// newRouter serves /metrics, /topics and /latest/<topic>
func newRouter(eb core.EventBus, metrics fasthttp.RequestHandler, logger core.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		switch {
		case path == "/metrics":
			metrics(ctx)
		case path == "/topics":
			topics := eb.Topics()
			infos := make([]topicInfo, 0, len(topics))
			for _, t := range topics {
				infos = append(infos, topicInfo{Topic: t, Subscribers: eb.Subscribers(t)})
			}
			writeJSON(ctx, infos, logger)
		case strings.HasPrefix(path, latestPrefix):
			topic := strings.TrimPrefix(path, latestPrefix)
			props, ok := eb.GetLatest(topic)
			if !ok {
				ctx.Error(fmt.Sprintf("no bundle published on %q", topic), fasthttp.StatusNotFound)
				return
			}
			writeJSON(ctx, props, logger.WithContext(otel.ContextFromRequest(ctx)))
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}, logger core.Logger) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error(fmt.Sprintf("encode response: %v", err))
		ctx.Error("internal error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// startHTTPServer serves the router on the configured metrics address
func startHTTPServer(lc fx.Lifecycle, cfg config.BusConfig, eb core.EventBus, logger core.Logger) {
	server := &fasthttp.Server{
		Handler: otel.HTTPMiddleware(newRouter(eb, prometheus.FastHTTPHandler(), logger)),
		Name:    "eventbus-demo",
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", cfg.Metrics.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Metrics.ListenAddr, err)
			}
			logger.WithFields(map[string]interface{}{
				"addr": ln.Addr().String(),
			}).Info("http server listening")
			go func() {
				if err := server.Serve(ln); err != nil {
					logger.Error(fmt.Sprintf("http server stopped: %v", err))
				}
			}()
			return nil
		},
		OnStop: server.ShutdownWithContext,
	})
}
