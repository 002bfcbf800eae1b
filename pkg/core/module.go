package core

import (
	"go.uber.org/fx"

	"github.com/geoyee/eventbus/pkg/config"
)

// Params are the dependencies of ProvideEventBus
type Params struct {
	fx.In

	Config    config.BusConfig
	Logger    Logger
	Observer  Observer `optional:"true"`
	Lifecycle fx.Lifecycle
}

// Module returns the fx module providing the process's EventBus.
// The bus is closed when the application stops.
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus builds the bus from the configuration and ties it to the lifecycle
func ProvideEventBus(p Params) (EventBus, error) {
	var opts []Option
	if p.Observer != nil {
		opts = append(opts, WithObserver(p.Observer))
	}
	eb, err := NewEventBusFromConfig(p.Config, p.Logger, opts...)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: eb.Close,
	})
	return eb, nil
}
