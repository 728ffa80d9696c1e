package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fussion/engine/internal/config"
	"github.com/fussion/engine/internal/core/asset"
	"github.com/fussion/engine/internal/core/components"
	"github.com/fussion/engine/internal/core/events/bus"
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/reflection"
	"github.com/fussion/engine/internal/core/scene"
)

type faulty struct {
	scene.Base
	Fail bool
}

func (f *faulty) OnUpdate(float32) {
	if f.Fail {
		panic("boom")
	}
}

func newApp(t *testing.T, mutate func(*config.Config)) (*App, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Assets.Root = root
	cfg.Assets.Watch = false
	cfg.App.FixedDelta = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	reg := reflection.NewRegistry()
	require.NoError(t, components.RegisterAll(reg))
	require.NoError(t, reflection.Register[faulty](reg, "Faulty", "Test"))
	return New(cfg, nil, asset.NewManager(root, reg), nil), root
}

func TestOpenCreatesEmptyScene(t *testing.T) {
	a, _ := newApp(t, nil)
	require.NoError(t, a.Open(context.Background()))
	defer a.Close()

	require.NotNil(t, a.Scene())
	assert.Equal(t, "untitled", a.Scene().Name())
	assert.ErrorIs(t, a.Save(), asset.ErrNoPath)
}

func TestOpenLoadsStartupScene(t *testing.T) {
	a, root := newApp(t, func(c *config.Config) { c.App.Scene = "main.scene" })
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.scene"), []byte(`{
  "Name": "main",
  "Entities": [
    {"Handle": 7, "Name": "Lamp", "Parent": 0,
     "Components": [{"Type": "PointLight", "Enabled": true, "Data": {"Radius": 4}}]}
  ]
}`), 0o644))

	require.NoError(t, a.Open(context.Background()))
	defer a.Close()
	assert.Equal(t, "main", a.Scene().Name())

	require.NoError(t, a.Frame(0.016))
	assert.Equal(t, uint64(1), a.FrameCount())
	require.Len(t, a.Render().PointLights, 1)
	assert.Equal(t, float32(4), a.Render().PointLights[0].Radius)
	assert.Equal(t, uint64(1), a.Render().Frame)
}

func TestOpenMissingScene(t *testing.T) {
	a, _ := newApp(t, func(c *config.Config) { c.App.Scene = "missing.scene" })
	assert.ErrorIs(t, a.Open(context.Background()), os.ErrNotExist)
}

func TestFrameWithoutScene(t *testing.T) {
	a, _ := newApp(t, nil)
	assert.ErrorIs(t, a.Frame(0.1), ErrNoScene)
}

func addFaulty(t *testing.T, a *App) {
	t.Helper()
	e, err := a.Scene().CreateEntity("Broken", models.RootHandle)
	require.NoError(t, err)
	_, err = e.AddComponent(&faulty{Fail: true})
	require.NoError(t, err)
}

func TestFaultIsLoggedAndSkipped(t *testing.T) {
	a, _ := newApp(t, nil)
	require.NoError(t, a.Open(context.Background()))
	defer a.Close()
	addFaulty(t, a)

	require.NoError(t, a.Frame(0.1))
	require.NoError(t, a.Frame(0.1))
	assert.Equal(t, 2, a.Faults())
	assert.Equal(t, uint64(2), a.FrameCount())
}

func TestFaultAborts(t *testing.T) {
	a, _ := newApp(t, func(c *config.Config) { c.App.AbortOnFault = true })
	require.NoError(t, a.Open(context.Background()))
	defer a.Close()
	addFaulty(t, a)

	err := a.Frame(0.1)
	require.ErrorIs(t, err, ErrAborted)
	var hookErr *scene.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "Faulty", hookErr.Component)
	assert.Equal(t, scene.PhaseUpdate, hookErr.Phase)

	err = a.Run(context.Background())
	assert.ErrorIs(t, err, ErrAborted)
}

func TestRunStopsAtFrameLimit(t *testing.T) {
	a, _ := newApp(t, func(c *config.Config) { c.App.MaxFrames = 3 })
	require.NoError(t, a.Open(context.Background()))
	defer a.Close()

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, uint64(3), a.FrameCount())
}

func TestRunStopsOnCancel(t *testing.T) {
	a, _ := newApp(t, nil)
	require.NoError(t, a.Open(context.Background()))
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, a.Run(ctx))
}

func TestCloseSavesRegistry(t *testing.T) {
	a, root := newApp(t, nil)
	require.NoError(t, a.Open(context.Background()))
	s := a.Scene()
	require.NoError(t, a.assets.SaveSceneAs(s, "levels/start.scene"))
	require.NoError(t, a.Save())

	require.NoError(t, a.Close())
	assert.True(t, s.Closed())
	data, err := os.ReadFile(filepath.Join(root, "assets.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "levels/start.scene")
	assert.Contains(t, string(data), s.AssetHandle().String())
}

func TestInspectorReceivesSnapshots(t *testing.T) {
	a, _ := newApp(t, func(c *config.Config) {
		c.Inspector.Enabled = true
		c.Inspector.Address = "127.0.0.1:0"
	})
	require.NoError(t, a.Open(context.Background()))
	defer a.Close()
	require.NotNil(t, a.inspector)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+a.inspector.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.inspector.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err = a.Scene().CreateEntity("Camera", models.RootHandle)
	require.NoError(t, err)
	require.NoError(t, a.Frame(0.1))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"frame":1`)
	assert.Contains(t, string(msg), "Camera")
}

func TestCloseSavesModifiedScenes(t *testing.T) {
	a, root := newApp(t, func(c *config.Config) {
		c.App.Scene = "main.scene"
		c.Assets.SaveOnExit = true
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.scene"), []byte(`{"Name": "main", "Entities": []}`), 0o644))
	require.NoError(t, a.Open(context.Background()))

	_, err := a.Scene().CreateEntity("Added", models.RootHandle)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(filepath.Join(root, "main.scene"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Added")
}

func TestEventBusObserved(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Assets.Root = root
	cfg.Assets.Watch = false
	reg := reflection.NewRegistry()
	require.NoError(t, components.RegisterAll(reg))
	events := bus.New()
	assets := asset.NewManager(root, reg, asset.WithSceneOptions(scene.WithEventBus(events)))
	a := New(cfg, nil, assets, events)
	require.NoError(t, a.Open(context.Background()))

	_, err := events.Subscribe(scene.EventEntityCreated, func(bus.Event) error {
		time.Sleep(2 * slowDelivery)
		return nil
	})
	require.NoError(t, err)
	before := events.GetMetrics().Published
	_, err = a.Scene().CreateEntity("Slow", models.RootHandle)
	require.NoError(t, err)
	assert.Equal(t, 1, a.SlowDeliveries())
	assert.Equal(t, before+1, events.GetMetrics().Published)

	require.NoError(t, a.Close())
	before = events.GetMetrics().Published
	require.NoError(t, events.Publish(bus.NewEvent(scene.EventEntityCreated, "test", nil)))
	assert.Equal(t, before, events.GetMetrics().Published, "observer removed on close")
}
