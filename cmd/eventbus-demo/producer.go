package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/geoyee/eventbus/pkg/core"
	"github.com/geoyee/eventbus/pkg/property"
)

const dataUpdateTopic = "DATA-UPDATE"

type producerConfig struct {
	Events   int
	Interval time.Duration
}

// newDataUpdate builds one DATA-UPDATE bundle
func newDataUpdate(now time.Time, size int) property.Properties {
	return property.Properties{
		"time":  property.Of(strconv.FormatInt(now.UnixNano(), 10)),
		"size":  property.Of(size),
		"value": property.Of(float64(rand.IntN(100)) / 100.0),
	}
}

// formatDataUpdate renders a bundle as "[time] size -> value"
func formatDataUpdate(props property.Properties) (string, error) {
	ts, err := property.Lookup[string](props, "time")
	if err != nil {
		return "", err
	}
	size, err := property.Lookup[int](props, "size")
	if err != nil {
		return "", err
	}
	value, err := property.Lookup[float64](props, "value")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %d -> %g", ts, size, value), nil
}

// registerConsole subscribes a printer to DATA-UPDATE for the lifetime of the app
func registerConsole(lc fx.Lifecycle, eb core.EventBus, out io.Writer, logger core.Logger) {
	var mu sync.Mutex
	id := eb.Listen(dataUpdateTopic, func(props property.Properties) {
		line, err := formatDataUpdate(props)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"topic": dataUpdateTopic,
			}).Error(fmt.Sprintf("malformed bundle: %v", err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, line)
	})

	lc.Append(fx.StopHook(func() {
		eb.Unlisten(dataUpdateTopic, id)
	}))
}

// startProducer publishes pc.Events bundles, then asks the app to shut down.
// Events <= 0 publishes until the app stops.
func startProducer(lc fx.Lifecycle, sd fx.Shutdowner, eb core.EventBus, pc producerConfig, logger core.Logger) {
	stop := make(chan struct{})
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if !produce(eb, pc, stop) {
					return
				}
				logger.WithFields(map[string]interface{}{
					"events": pc.Events,
				}).Info("producer finished")
				if err := sd.Shutdown(); err != nil {
					logger.Error(fmt.Sprintf("shutdown request failed: %v", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

// produce reports whether every requested event was published before stop
func produce(eb core.EventBus, pc producerConfig, stop <-chan struct{}) bool {
	ticker := time.NewTicker(pc.Interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		eb.Publish(dataUpdateTopic, newDataUpdate(time.Now(), i))
		if pc.Events > 0 && i == pc.Events-1 {
			return true
		}
		select {
		case <-stop:
			return false
		case <-ticker.C:
		}
	}
}
