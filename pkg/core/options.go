package core

import (
	"fmt"

	"github.com/geoyee/eventbus/pkg/config"
)

// Option configures an event bus
type Option func(*topicBus)

// WithLogger sets the logger used for bus diagnostics and callback panics
func WithLogger(logger Logger) Option {
	return func(eb *topicBus) {
		eb.logger = logger
	}
}

// WithDispatcher sets how callbacks are scheduled. The bus closes it on Close.
func WithDispatcher(d Dispatcher) Option {
	return func(eb *topicBus) {
		eb.dispatcher = d
	}
}

// WithObserver sets the receiver of bus activity, typically a metrics collector
func WithObserver(o Observer) Option {
	return func(eb *topicBus) {
		if o != nil {
			eb.observer = o
		}
	}
}

// WithIDGenerator sets the subscription ID generator
func WithIDGenerator(g IDGenerator) Option {
	return func(eb *topicBus) {
		eb.ids = g
	}
}

// NewEventBusFromConfig creates an event bus whose dispatcher and ID generator
// follow cfg. Options are applied after the configuration and take precedence.
func NewEventBusFromConfig(cfg config.BusConfig, logger Logger, opts ...Option) (EventBus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event bus config: %w", err)
	}
	if logger == nil {
		logger = NewLogger(LoggerConfig{JSONOutput: cfg.Log.JSON, Level: cfg.Log.Level})
	}

	base := []Option{WithLogger(logger)}
	if cfg.IDGenerator == config.IDUUID {
		base = append(base, WithIDGenerator(UUIDGenerator{}))
	}
	eb := newTopicBus(append(base, opts...)...)
	if eb.dispatcher == nil && cfg.Dispatcher.Mode == config.DispatcherPool {
		eb.dispatcher = NewPoolDispatcher(
			cfg.Dispatcher.Workers,
			cfg.Dispatcher.QueueSize,
			func(r any) {
				logger.Error(fmt.Sprintf("dispatcher job panicked: %v", r))
			},
			OnOverflow(eb.observer.DispatchOverflowed),
		)
	}
	eb.setDefaults()

	logger.WithFields(map[string]interface{}{
		"dispatcher":   cfg.Dispatcher.Mode,
		"workers":      cfg.Dispatcher.Workers,
		"queue_size":   cfg.Dispatcher.QueueSize,
		"id_generator": cfg.IDGenerator,
	}).Info("event bus created")
	return eb, nil
}
