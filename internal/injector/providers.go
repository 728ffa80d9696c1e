package injector

import (
	"github.com/google/wire"

	"github.com/fussion/engine/internal/config"
	"github.com/fussion/engine/internal/core/asset"
	"github.com/fussion/engine/internal/core/components"
	"github.com/fussion/engine/internal/core/events/bus"
	"github.com/fussion/engine/internal/core/observability/log"
	"github.com/fussion/engine/internal/core/reflection"
	"github.com/fussion/engine/internal/core/scene"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideScriptEngine,
	ProvideEventBus,
	ProvideAssets,
)

func ProvideLogger(cfg config.Config) log.Log {
	return log.New(cfg.LoggerOptions())
}

// ProvideRegistry returns a registry holding the built-in components.
func ProvideRegistry() (*reflection.Registry, error) {
	r := reflection.NewRegistry()
	if err := components.RegisterAll(r); err != nil {
		return nil, err
	}
	return r, nil
}

func ProvideScriptEngine() *components.FuncEngine {
	return components.NewFuncEngine()
}

// ProvideEventBus returns the bus shared by every scene. Scene events are
// traced at debug level.
func ProvideEventBus(logger log.Log) bus.EventBus {
	b := bus.New()
	trace := logger.With(log.String("component", "events"))
	_, _ = b.SubscribeAll(func(event bus.Event) error {
		trace.Debug("scene event",
			log.String("type", string(event.Type())),
			log.String("scene", event.Source()),
			log.Any("data", event.Data()))
		return nil
	})
	return b
}

func ProvideAssets(
	cfg config.Config,
	logger log.Log,
	registry *reflection.Registry,
	events bus.EventBus,
	scripts *components.FuncEngine,
) *asset.Manager {
	return asset.NewManager(cfg.Assets.Root, registry,
		asset.WithLogger(logger),
		asset.WithWorkers(cfg.Assets.Workers),
		asset.WithSceneOptions(
			scene.WithEventBus(events),
			scene.WithService(scripts),
		))
}
