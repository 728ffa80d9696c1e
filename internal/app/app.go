// Package app drives the frame loop: it loads the active scene, updates and
// draws it at a fixed rate and applies asset reloads between frames.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fussion/engine/internal/config"
	"github.com/fussion/engine/internal/core/asset"
	"github.com/fussion/engine/internal/core/events/bus"
	"github.com/fussion/engine/internal/core/observability/log"
	"github.com/fussion/engine/internal/core/render"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/inspect"
)

var (
	ErrAborted = errors.New("frame loop aborted after a component fault")
	ErrNoScene = errors.New("no active scene")
)

// App owns the running engine. All of its methods run on the main thread.
type App struct {
	config config.Config
	logger log.Log
	assets *asset.Manager
	events bus.EventBus
	tracer *deliveryTracer

	scene     *scene.Scene
	render    *render.Context
	watcher   *asset.Watcher
	inspector *inspect.Server

	frame  uint64
	faults int
}

// New returns an app over assets. events may be nil when scenes publish on
// no bus.
func New(cfg config.Config, logger log.Log, assets *asset.Manager, events bus.EventBus) *App {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.With(log.String("component", "app"))
	return &App{
		config: cfg,
		logger: logger,
		assets: assets,
		events: events,
		tracer: &deliveryTracer{logger: logger},
		render: render.NewContext(),
	}
}

// Open restores the asset registry, loads the startup scene (or creates an
// empty one) and starts the optional watcher and inspector.
func (a *App) Open(ctx context.Context) error {
	if a.events != nil {
		a.events.AddObserver(a.tracer)
	}
	if err := a.assets.LoadRegistry(a.config.Assets.Registry); err != nil {
		return err
	}
	if _, err := a.assets.Scan(); err != nil {
		a.logger.Warn("asset scan incomplete", log.Error(err))
	}

	var (
		s   *scene.Scene
		err error
	)
	if a.config.App.Scene != "" {
		s, err = a.assets.LoadScenePath(a.config.App.Scene)
	} else {
		s, err = a.assets.NewScene("untitled")
	}
	if err != nil {
		return fmt.Errorf("open scene: %w", err)
	}
	a.scene = s

	if a.config.Assets.Watch {
		if a.watcher, err = a.assets.Watch(ctx); err != nil {
			a.logger.Warn("hot reload disabled", log.Error(err))
		}
	}
	if a.config.Inspector.Enabled {
		a.inspector = inspect.NewServer(a.config.Inspector.Address, a.logger)
		if err := a.inspector.Start(ctx); err != nil {
			a.inspector = nil
			a.logger.Warn("inspector disabled", log.Error(err))
		}
	}

	a.logger.Info("scene opened",
		log.String("scene", s.Name()),
		log.Stringer("asset", s.AssetHandle()),
		log.Int("entities", s.EntityCount()))
	return nil
}

func (a *App) Scene() *scene.Scene     { return a.scene }
func (a *App) Render() *render.Context { return a.render }
func (a *App) FrameCount() uint64      { return a.frame }
func (a *App) Faults() int             { return a.faults }

// SlowDeliveries counts scene events whose handlers took longer than a
// couple of milliseconds.
func (a *App) SlowDeliveries() int { return a.tracer.slow }

// SetScene makes s the active scene. The previous one stays owned by the
// asset manager.
func (a *App) SetScene(s *scene.Scene) { a.scene = s }

// Frame advances the active scene by delta seconds and draws it into the
// render context.
func (a *App) Frame(delta float32) error {
	if a.scene == nil {
		return ErrNoScene
	}
	a.frame++
	if n := a.assets.PollReloads(); n > 0 {
		a.logger.Info("assets reloaded", log.Int("count", n))
	}

	if err := a.check(a.scene.Update(delta)); err != nil {
		return err
	}
	a.render.Reset(a.frame)
	if err := a.check(a.scene.Draw(a.render)); err != nil {
		return err
	}
	a.publish()
	return nil
}

// check logs the hook faults in err. Faults are fatal only with
// abort_on_fault; any other error is returned as is.
func (a *App) check(err error) error {
	if err == nil {
		return nil
	}
	faults := hookErrors(err)
	if len(faults) == 0 {
		return err
	}
	for _, f := range faults {
		a.faults++
		a.logger.Error("component fault",
			log.Uint64("frame", a.frame),
			log.Stringer("entity", f.Entity),
			log.String("component", f.Component),
			log.String("phase", f.Phase.String()),
			log.Any("panic", f.Value))
	}
	if a.config.App.AbortOnFault {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return nil
}

// hookErrors flattens joined errors into their hook faults.
func hookErrors(err error) []*scene.HookError {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*scene.HookError
		for _, e := range joined.Unwrap() {
			out = append(out, hookErrors(e)...)
		}
		return out
	}
	var h *scene.HookError
	if errors.As(err, &h) {
		return []*scene.HookError{h}
	}
	return nil
}

func (a *App) publish() {
	if a.inspector == nil {
		return
	}
	every := uint64(a.config.Inspector.Interval)
	if !a.scene.IsDirty() && (every == 0 || a.frame%every != 0) {
		return
	}
	data, err := inspect.Snapshot(a.scene, a.frame)
	if err != nil {
		a.logger.Warn("scene snapshot failed", log.Error(err))
		return
	}
	a.inspector.Publish(data)
}

// Run calls Frame at the configured fixed rate until ctx is done, the frame
// limit is reached or a frame fails.
func (a *App) Run(ctx context.Context) error {
	step := a.config.App.FixedDelta
	delta := float32(step.Seconds())
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for {
		if limit := a.config.App.MaxFrames; limit > 0 && a.frame >= uint64(limit) {
			a.logger.Info("frame limit reached", log.Uint64("frames", a.frame))
			return nil
		}
		select {
		case <-ctx.Done():
			a.logger.Info("frame loop stopped", log.Uint64("frames", a.frame))
			return nil
		case <-ticker.C:
			if err := a.Frame(delta); err != nil {
				return err
			}
		}
	}
}

// Save writes the active scene to its file.
func (a *App) Save() error {
	if a.scene == nil {
		return ErrNoScene
	}
	return a.assets.SaveScene(a.scene)
}

// Close stops background services, saves modified scenes when configured,
// persists the asset registry and releases every asset.
func (a *App) Close() error {
	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.inspector != nil {
		errs = append(errs, a.inspector.Stop(ctx))
	}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.config.Assets.SaveOnExit {
		n, err := a.assets.SaveAll(ctx)
		if n > 0 {
			a.logger.Info("scenes saved on exit", log.Int("count", n))
		}
		errs = append(errs, err)
	}
	errs = append(errs, a.assets.SaveRegistry(a.config.Assets.Registry))
	errs = append(errs, a.assets.Close())
	a.scene = nil

	if a.events != nil {
		a.events.RemoveObserver(a.tracer)
		m := a.events.GetMetrics()
		a.logger.Info("event bus totals",
			log.Uint64("published", m.Published),
			log.Uint64("delivered", m.DeliveredHandlers),
			log.Uint64("errors", m.Errors),
			log.Uint64("subscribers", m.SubscribersActive))
	}
	return errors.Join(errs...)
}

// slowDelivery is the handler time after which an event delivery is
// reported. Handlers run on the main thread.
const slowDelivery = 2 * time.Millisecond

// deliveryTracer reports scene events whose handlers stall the frame.
type deliveryTracer struct {
	logger log.Log
	slow   int
}

func (t *deliveryTracer) OnPublish(bus.EventType, bus.Event) {}

func (t *deliveryTracer) OnDelivered(typ bus.EventType, handlers int, _ error, micros int64) {
	if time.Duration(micros)*time.Microsecond < slowDelivery {
		return
	}
	t.slow++
	t.logger.Warn("slow scene event handlers",
		log.String("event", string(typ)),
		log.Int("handlers", handlers),
		log.Int64("micros", micros))
}
