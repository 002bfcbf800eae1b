package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/geoyee/eventbus/pkg/config"
	"github.com/geoyee/eventbus/pkg/core"
	"github.com/geoyee/eventbus/pkg/observability/otel"
	"github.com/geoyee/eventbus/pkg/observability/prometheus"
)

const stopTimeout = 5 * time.Second

// newApp assembles config, logging, metrics, tracing and the bus
func newApp(cfg config.BusConfig, pc producerConfig, out io.Writer) *fx.App {
	zl := newZap(cfg.Log)

	return fx.New(
		fx.Supply(cfg, pc),
		fx.Supply(zl),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			fl := &fxevent.ZapLogger{Logger: l.Named("fx")}
			fl.UseLogLevel(zapcore.DebugLevel)
			return fl
		}),
		fx.Provide(
			func() io.Writer { return out },
			func(l *zap.Logger) core.Logger { return core.NewZapLogger(l) },
		),
		metricsModule(cfg.Metrics),
		tracingModule(cfg.Tracing),
		core.Module(),
		fx.Invoke(registerConsole),
		fx.Invoke(startProducer),
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.StopHook(func() error {
				return ignoreSyncError(zl.Sync())
			}))
		}),
	)
}

func metricsModule(mc config.MetricsConfig) fx.Option {
	if !mc.Enabled {
		return fx.Options()
	}
	return fx.Module("metrics",
		fx.Provide(
			func() (*prometheus.Metrics, error) {
				return prometheus.NewMetrics(prometheus.DefaultRegistry)
			},
			func(m *prometheus.Metrics) core.Observer { return m },
		),
		fx.Invoke(startHTTPServer),
	)
}

func tracingModule(tc config.TracingConfig) fx.Option {
	if tc.Exporter == "" || tc.Exporter == otel.ExporterNone {
		return fx.Options()
	}
	return fx.Options(
		fx.Module("tracing", fx.Invoke(func(lc fx.Lifecycle, logger core.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := otel.Initialize(ctx, otel.ConfigFrom(tc, version)); err != nil {
						return err
					}
					logger.WithFields(map[string]interface{}{
						"exporter": tc.Exporter,
					}).Info("tracing enabled")
					return nil
				},
				OnStop: otel.Shutdown,
			})
		})),
		fx.Decorate(func(eb core.EventBus) core.EventBus {
			return otel.NewTracedBus(eb)
		}),
	)
}

// run starts the application and blocks until the producer is done or ctx is cancelled
func run(ctx context.Context, cfg config.BusConfig, pc producerConfig, out io.Writer) error {
	app := newApp(cfg, pc, out)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	var exitCode int
	select {
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	case <-ctx.Done():
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), stopTimeout)
	defer cancelStop()
	err := app.Stop(stopCtx)
	if exitCode != 0 {
		err = multierr.Append(err, &exitError{code: exitCode})
	}
	return err
}

func newZap(lc config.LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	if !lc.JSON {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.Sampling = nil

	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
