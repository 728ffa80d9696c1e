package asset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fussion/engine/internal/core/components"
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/reflection"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/pkg/concurrent"
)

func newManager(t *testing.T, root string) *Manager {
	t.Helper()
	reg := reflection.NewRegistry()
	require.NoError(t, components.RegisterAll(reg))
	return NewManager(root, reg, WithWorkers(2))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// playerScene builds a scene with a "Player" entity carrying a point light
// of radius 10.
func playerScene(t *testing.T, m *Manager) (*scene.Scene, *scene.Entity) {
	t.Helper()
	s, err := m.NewScene("main")
	require.NoError(t, err)
	player, err := s.CreateEntity("Player", models.RootHandle)
	require.NoError(t, err)
	light := components.NewPointLight()
	light.Radius = 10
	_, err = player.AddComponent(light)
	require.NoError(t, err)
	return s, player
}

func TestKindFromPath(t *testing.T) {
	assert.Equal(t, models.AssetKindScene, KindFromPath("a/b.scene"))
	assert.Equal(t, models.AssetKindScene, KindFromPath("b.scene.yaml"))
	assert.Equal(t, models.AssetKindScene, KindFromPath("B.SCENE.JSON"))
	assert.Equal(t, models.AssetKindMesh, KindFromPath("crate.glb"))
	assert.Equal(t, models.AssetKindTexture, KindFromPath("wall.png"))
	assert.Equal(t, models.AssetKindUnknown, KindFromPath("notes.txt"))
	assert.Equal(t, models.AssetKindUnknown, KindFromPath("config.yaml"))
}

func TestRegister(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, root)

	h, err := m.Register("levels/one.scene")
	require.NoError(t, err)
	again, err := m.Register(filepath.Join(root, "levels", "one.scene"))
	require.NoError(t, err)
	assert.Equal(t, h, again)

	meta, ok := m.Metadata(h)
	require.True(t, ok)
	assert.Equal(t, "levels/one.scene", meta.Path)
	assert.Equal(t, models.AssetKindScene, meta.Kind)

	_, err = m.Register("../escape.scene")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	other := models.NewAssetHandle()
	assert.ErrorIs(t, m.RegisterWithHandle(other, "levels/one.scene", 0), ErrDuplicatePath)
	assert.ErrorIs(t, m.RegisterWithHandle(h, "levels/two.scene", 0), ErrDuplicateHandle)
	assert.NoError(t, m.RegisterWithHandle(h, "levels/one.scene", 0))
}

func TestSaveAndLoadScene(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, root)
	s, player := playerScene(t, m)
	assert.ErrorIs(t, m.SaveScene(s), ErrNoPath)

	require.NoError(t, m.SaveSceneAs(s, "levels/main.scene"))
	assert.False(t, s.IsDirty())
	assert.FileExists(t, filepath.Join(root, "levels", "main.scene"))
	require.NoError(t, m.SaveRegistry("assets.yaml"))

	fresh := newManager(t, root)
	require.NoError(t, fresh.LoadRegistry("assets.yaml"))
	h, ok := fresh.Lookup("levels/main.scene")
	require.True(t, ok)
	assert.Equal(t, s.AssetHandle(), h)

	loaded, err := fresh.LoadScene(h)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.RefCount(h))
	lp := loaded.GetEntity(player.Handle())
	require.NotNil(t, lp)
	assert.Equal(t, "Player", lp.Name())
	light := scene.Get[components.PointLight](lp)
	require.NotNil(t, light)
	assert.Equal(t, float32(10), light.Radius)

	lp.SetName("Hero")
	require.NoError(t, fresh.SaveScene(loaded))
	assert.False(t, loaded.IsDirty())
}

func TestSaveAll(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, root)

	paths := []string{"a.scene", "levels/b.scene.yaml", "levels/c.scene"}
	var scenes []*scene.Scene
	for _, p := range paths {
		s, _ := playerScene(t, m)
		require.NoError(t, m.SaveSceneAs(s, p))
		scenes = append(scenes, s)
	}
	virtual, _ := playerScene(t, m)
	require.True(t, virtual.IsDirty())

	n, err := m.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "clean scenes are skipped")

	scenes[0].SetName("first")
	scenes[2].SetName("third")
	n, err = m.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, s := range scenes {
		assert.False(t, s.IsDirty())
	}
	assert.True(t, virtual.IsDirty())

	data, err := os.ReadFile(filepath.Join(root, "levels", "c.scene"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "third")
}

func TestSaveAllReportsWriteFailure(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, root)
	s, _ := playerScene(t, m)
	require.NoError(t, m.SaveSceneAs(s, "blocked/main.scene"))
	s.SetName("changed")
	require.NoError(t, os.RemoveAll(filepath.Join(root, "blocked")))
	writeFile(t, filepath.Join(root, "blocked"), "not a directory")

	n, err := m.SaveAll(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, s.IsDirty())
}

func TestYAMLScene(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, root)
	s, _ := playerScene(t, m)
	require.NoError(t, m.SaveSceneAs(s, "main.scene.yaml"))

	data, err := os.ReadFile(filepath.Join(root, "main.scene.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Player")

	fresh := newManager(t, root)
	loaded, err := fresh.LoadScenePath("main.scene.yaml")
	require.NoError(t, err)
	assert.NotNil(t, loaded.FindEntityByName("Player"))
}

func TestReferenceCounting(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, root)
	s, _ := playerScene(t, m)
	require.NoError(t, m.SaveSceneAs(s, "main.scene"))
	require.NoError(t, m.Release(s.AssetHandle()))
	assert.True(t, s.Closed())
	_, loaded := Get[*scene.Scene](m, s.AssetHandle())
	assert.False(t, loaded)

	h := s.AssetHandle()
	a, err := m.LoadScene(h)
	require.NoError(t, err)
	b, err := m.LoadScene(h)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 2, m.RefCount(h))

	require.NoError(t, m.Release(h))
	assert.False(t, a.Closed())
	got, ok := Get[*scene.Scene](m, h)
	require.True(t, ok)
	assert.Same(t, a, got)

	require.NoError(t, m.Release(h))
	assert.True(t, a.Closed())
	assert.Zero(t, m.RefCount(h))
	assert.ErrorIs(t, m.Release(h), ErrAssetNotFound)

	_, ok = m.Metadata(h)
	assert.True(t, ok, "file assets stay registered")
}

func TestVirtualAsset(t *testing.T) {
	m := newManager(t, t.TempDir())
	s, err := m.NewScene("scratch")
	require.NoError(t, err)
	h := s.AssetHandle()
	assert.Equal(t, 1, m.RefCount(h))
	meta, ok := m.Metadata(h)
	require.True(t, ok)
	assert.True(t, meta.Virtual)

	_, err = m.CreateVirtualAsset(s)
	assert.ErrorIs(t, err, ErrDuplicateHandle)

	require.NoError(t, m.Release(h))
	_, ok = m.Metadata(h)
	assert.False(t, ok)
}

func TestAcquireErrors(t *testing.T) {
	root := t.TempDir()
	m := newManager(t, root)
	_, err := m.Acquire(models.NewAssetHandle())
	assert.ErrorIs(t, err, ErrAssetNotFound)

	mesh, err := m.Register("crate.glb")
	require.NoError(t, err)
	_, err = m.Acquire(mesh)
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	missing, err := m.Register("missing.scene")
	require.NoError(t, err)
	_, err = m.LoadScene(missing)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAllBestEffort(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.scene"), `{"Name":"a","Entities":[{"Handle":5,"Name":"E","Parent":0}]}`)
	writeFile(t, filepath.Join(root, "sub", "b.scene.yaml"), "Name: b\nEntities: []\n")
	writeFile(t, filepath.Join(root, "broken.scene"), `{"Name":`)
	writeFile(t, filepath.Join(root, "readme.txt"), "ignored")

	m := newManager(t, root)
	added, err := m.Scan()
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	scenes, err := m.LoadAll(context.Background())
	assert.Error(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, "a", scenes[0].Name())
	assert.NotNil(t, scenes[0].GetEntity(5))
	assert.Equal(t, "b", scenes[1].Name())
	for _, s := range scenes {
		assert.Equal(t, 1, m.RefCount(s.AssetHandle()))
	}

	again, err := m.LoadAll(context.Background())
	assert.Error(t, err, "the broken file is still pending")
	assert.Empty(t, again)
}

func TestPollReloads(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "live.scene")
	writeFile(t, path, `{"Name":"live","Entities":[{"Handle":5,"Name":"Before","Parent":0}]}`)

	m := newManager(t, root)
	s, err := m.LoadScenePath("live.scene")
	require.NoError(t, err)
	assert.Zero(t, m.PollReloads())

	// unchanged file
	m.QueueReload("live.scene")
	assert.Zero(t, m.PollReloads())

	writeFile(t, path, `{"Name":"live","Entities":[{"Handle":5,"Name":"After","Parent":0}]}`)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	m.QueueReload("live.scene")
	m.QueueReload("live.scene")
	m.QueueReload("unknown.scene")
	assert.Equal(t, 1, m.PollReloads())
	got, ok := Get[*scene.Scene](m, s.AssetHandle())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, "After", s.GetEntity(5).Name())

	// unsaved edits win
	s.GetEntity(5).SetName("Edited")
	later := future.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	m.QueueReload("live.scene")
	assert.Zero(t, m.PollReloads())
	assert.Equal(t, "Edited", s.GetEntity(5).Name())
}

func TestWatcherReportsChanges(t *testing.T) {
	root := t.TempDir()
	q := concurrent.NewQueue[string]()
	w, err := NewWatcher(root, q.Push, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	writeFile(t, filepath.Join(root, "x.scene"), "{}")
	var seen []string
	assert.Eventually(t, func() bool {
		seen = append(seen, q.Drain()...)
		for _, p := range seen {
			if p == "x.scene" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestManagerClose(t *testing.T) {
	m := newManager(t, t.TempDir())
	s, _ := playerScene(t, m)
	require.NoError(t, m.Close())
	assert.True(t, s.Closed())
	assert.Empty(t, m.List())
}
