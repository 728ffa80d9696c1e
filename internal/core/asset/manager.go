package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/observability/log"
	"github.com/fussion/engine/internal/core/reflection"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
	"github.com/fussion/engine/pkg/concurrent"
	"github.com/fussion/engine/pkg/sequence"
)

type entry struct {
	meta  Metadata
	asset Asset
	refs  int
	// modification time of the file when it was last loaded or saved
	stamp time.Time
}

type Manager struct {
	mu      sync.RWMutex
	root    string
	types   *reflection.Registry
	logger  log.Log
	options []scene.Option
	workers int

	entries map[models.AssetHandle]*entry
	byPath  map[string]models.AssetHandle
	reloads *concurrent.Queue[string]
}

type Option func(*Manager)

func WithLogger(l log.Log) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSceneOptions are applied to every scene the manager creates.
func WithSceneOptions(opts ...scene.Option) Option {
	return func(m *Manager) { m.options = append(m.options, opts...) }
}

// WithWorkers bounds the number of files LoadAll decodes at once.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// NewManager returns a manager for the files below root. types is the
// component registry scenes are built with.
func NewManager(root string, types *reflection.Registry, opts ...Option) *Manager {
	m := &Manager{
		root:    filepath.Clean(root),
		types:   types,
		logger:  log.Nop(),
		workers: runtime.GOMAXPROCS(0),
		entries: make(map[models.AssetHandle]*entry),
		byPath:  make(map[string]models.AssetHandle),
		reloads: concurrent.NewQueue[string](),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(log.String("component", "assets"))
	return m
}

func (m *Manager) Root() string { return m.root }

// rel normalizes path to a slash-separated path relative to the root.
func (m *Manager) rel(path string) (string, error) {
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(m.root, path)
		if err != nil {
			return "", errors.Wrapf(ErrOutsideRoot, "%s", path)
		}
		path = r
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if path == "." || path == ".." || strings.HasPrefix(path, "../") {
		return "", errors.Wrapf(ErrOutsideRoot, "%s", path)
	}
	return path, nil
}

func (m *Manager) abs(rel string) string {
	return filepath.Join(m.root, filepath.FromSlash(rel))
}

// Register records path (relative to the root, or absolute below it) and
// returns its handle. Registering a known path returns the existing handle.
func (m *Manager) Register(path string) (models.AssetHandle, error) {
	rel, err := m.rel(path)
	if err != nil {
		return models.NilAsset, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.byPath[rel]; ok {
		return h, nil
	}
	h := models.NewAssetHandle()
	m.entries[h] = &entry{meta: Metadata{Handle: h, Path: rel, Kind: KindFromPath(rel)}}
	m.byPath[rel] = h
	return h, nil
}

// RegisterWithHandle records path under a known handle, as read from a
// registry file.
func (m *Manager) RegisterWithHandle(h models.AssetHandle, path string, kind models.AssetKind) error {
	rel, err := m.rel(path)
	if err != nil {
		return err
	}
	if kind == models.AssetKindUnknown {
		kind = KindFromPath(rel)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[h]; ok {
		if e.meta.Path == rel {
			return nil
		}
		return fmt.Errorf("%w: %s (%s)", ErrDuplicateHandle, h, e.meta.Path)
	}
	if other, ok := m.byPath[rel]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrDuplicatePath, rel, other)
	}
	m.entries[h] = &entry{meta: Metadata{Handle: h, Path: rel, Kind: kind}}
	m.byPath[rel] = h
	return nil
}

// Lookup returns the handle registered for path.
func (m *Manager) Lookup(path string) (models.AssetHandle, bool) {
	rel, err := m.rel(path)
	if err != nil {
		return models.NilAsset, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.byPath[rel]
	return h, ok
}

func (m *Manager) Metadata(h models.AssetHandle) (Metadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[h]
	if !ok {
		return Metadata{}, false
	}
	return e.meta, true
}

// List returns all registered assets, file assets sorted by path first.
func (m *Manager) List() []Metadata {
	m.mu.RLock()
	out := make([]Metadata, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.meta)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Metadata) int {
		if a.Virtual != b.Virtual {
			if a.Virtual {
				return 1
			}
			return -1
		}
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Handle.String(), b.Handle.String())
	})
	return out
}

// CreateVirtualAsset adopts an in-memory asset with one reference held by
// the caller. It is forgotten when that reference is released.
func (m *Manager) CreateVirtualAsset(a Asset) (models.AssetHandle, error) {
	h := a.AssetHandle()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[h]; ok {
		return models.NilAsset, fmt.Errorf("%w: %s", ErrDuplicateHandle, h)
	}
	m.entries[h] = &entry{
		meta:  Metadata{Handle: h, Kind: a.AssetKind(), Virtual: true},
		asset: a,
		refs:  1,
	}
	return h, nil
}

// NewScene creates an empty virtual scene owned by the manager.
func (m *Manager) NewScene(name string) (*scene.Scene, error) {
	s := m.newScene(name, models.NewAssetHandle())
	if _, err := m.CreateVirtualAsset(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) newScene(name string, h models.AssetHandle) *scene.Scene {
	opts := append(slices.Clone(m.options), scene.WithAssetHandle(h), scene.WithLogger(m.logger))
	return scene.New(name, m.types, opts...)
}

// Acquire returns the asset for h, loading it on first use, and adds a
// reference. Call from the main thread.
func (m *Manager) Acquire(h models.AssetHandle) (Asset, error) {
	m.mu.Lock()
	e, ok := m.entries[h]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, h)
	}
	if e.asset != nil {
		e.refs++
		a := e.asset
		m.mu.Unlock()
		return a, nil
	}
	meta := e.meta
	m.mu.Unlock()

	if meta.Kind != models.AssetKindScene {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, meta.Kind)
	}
	data, stamp, err := m.readFile(meta.Path)
	if err != nil {
		return nil, err
	}
	tree, err := serialization.DecodeTree(data, serialization.FormatFromPath(meta.Path))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", meta.Path)
	}
	s, err := m.build(meta, tree)
	if err != nil {
		return nil, err
	}
	return m.adopt(h, s, stamp), nil
}

// adopt stores a freshly built asset, or takes a reference on one that was
// stored in the meantime.
func (m *Manager) adopt(h models.AssetHandle, a Asset, stamp time.Time) Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[h]
	if !ok {
		return a
	}
	if e.asset != nil {
		e.refs++
		return e.asset
	}
	e.asset = a
	e.refs = 1
	e.stamp = stamp
	return a
}

func (m *Manager) build(meta Metadata, tree map[string]any) (*scene.Scene, error) {
	name := strings.TrimSuffix(filepath.Base(meta.Path), filepath.Ext(meta.Path))
	s := m.newScene(name, meta.Handle)
	if err := s.Deserialize(serialization.NewReader(tree)); err != nil {
		m.logger.Warn("scene loaded with faults",
			log.String("path", meta.Path),
			log.Error(err))
	}
	m.logger.Info("scene loaded",
		log.String("path", meta.Path),
		log.Int("entities", s.EntityCount()))
	return s, nil
}

func (m *Manager) readFile(rel string) ([]byte, time.Time, error) {
	path := m.abs(rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, errors.Wrapf(err, "reading %s", rel)
	}
	return data, modTime(path), nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Release drops a reference. The last release closes the asset; a virtual
// asset is forgotten entirely.
func (m *Manager) Release(h models.AssetHandle) error {
	m.mu.Lock()
	e, ok := m.entries[h]
	if !ok || e.asset == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAssetNotFound, h)
	}
	e.refs--
	if e.refs > 0 {
		m.mu.Unlock()
		return nil
	}
	a := e.asset
	e.asset = nil
	e.refs = 0
	if e.meta.Virtual {
		delete(m.entries, h)
	}
	m.mu.Unlock()

	if c, ok := a.(closer); ok {
		if err := c.Close(); err != nil {
			return errors.Wrapf(err, "closing %s", h)
		}
	}
	return nil
}

// RefCount returns the number of live references to h.
func (m *Manager) RefCount(h models.AssetHandle) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[h]; ok {
		return e.refs
	}
	return 0
}

// Get returns the loaded asset for h typed as T without taking a reference.
func Get[T Asset](m *Manager, h models.AssetHandle) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero T
	e, ok := m.entries[h]
	if !ok || e.asset == nil {
		return zero, false
	}
	a, ok := e.asset.(T)
	return a, ok
}

// LoadScene acquires the scene asset h.
func (m *Manager) LoadScene(h models.AssetHandle) (*scene.Scene, error) {
	a, err := m.Acquire(h)
	if err != nil {
		return nil, err
	}
	s, ok := a.(*scene.Scene)
	if !ok {
		_ = m.Release(h)
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongKind, h, a.AssetKind())
	}
	return s, nil
}

// LoadScenePath registers path if needed and acquires its scene.
func (m *Manager) LoadScenePath(path string) (*scene.Scene, error) {
	h, err := m.Register(path)
	if err != nil {
		return nil, err
	}
	return m.LoadScene(h)
}

// SaveScene writes s to the file it was registered with and clears its
// dirty flag.
func (m *Manager) SaveScene(s *scene.Scene) error {
	meta, ok := m.Metadata(s.AssetHandle())
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, s.AssetHandle())
	}
	if meta.Virtual || meta.Path == "" {
		return fmt.Errorf("%w: %s", ErrNoPath, s.Name())
	}
	return m.writeScene(s, meta.Path)
}

// SaveSceneAs writes s to path and binds its handle to that file. A virtual
// scene becomes a file asset.
func (m *Manager) SaveSceneAs(s *scene.Scene, path string) error {
	rel, err := m.rel(path)
	if err != nil {
		return err
	}
	h := s.AssetHandle()
	m.mu.Lock()
	if other, ok := m.byPath[rel]; ok && other != h {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicatePath, rel)
	}
	e, ok := m.entries[h]
	if !ok {
		e = &entry{asset: s, refs: 1}
		m.entries[h] = e
	}
	if e.meta.Path != "" && e.meta.Path != rel {
		delete(m.byPath, e.meta.Path)
	}
	e.meta = Metadata{Handle: h, Path: rel, Kind: models.AssetKindScene}
	m.byPath[rel] = h
	m.mu.Unlock()
	return m.writeScene(s, rel)
}

func (m *Manager) writeScene(s *scene.Scene, rel string) error {
	data, err := encodeScene(s, rel)
	if err != nil {
		return err
	}
	stamp, err := m.writeFile(rel, data)
	if err != nil {
		return err
	}
	m.saved(s, rel, stamp)
	return nil
}

func encodeScene(s *scene.Scene, rel string) ([]byte, error) {
	w := serialization.NewWriter()
	s.Serialize(w)
	data, err := serialization.Encode(w, serialization.FormatFromPath(rel))
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", rel)
	}
	return data, nil
}

// writeFile replaces the file at rel atomically and returns its new
// modification time. It is safe to call from any goroutine.
func (m *Manager) writeFile(rel string, data []byte) (time.Time, error) {
	path := m.abs(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return time.Time{}, errors.Wrap(err, "creating scene directory")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return time.Time{}, errors.Wrapf(err, "writing %s", rel)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return time.Time{}, errors.Wrapf(err, "replacing %s", rel)
	}
	return modTime(path), nil
}

func (m *Manager) saved(s *scene.Scene, rel string, stamp time.Time) {
	m.mu.Lock()
	if e, ok := m.entries[s.AssetHandle()]; ok {
		e.stamp = stamp
	}
	m.mu.Unlock()
	s.SetDirty(false)
	m.logger.Info("scene saved", log.String("path", rel))
}

type pendingSave struct {
	scene *scene.Scene
	path  string
	data  []byte
	stamp time.Time
}

// SaveAll writes every loaded file scene with unsaved changes. Scenes are
// serialized on the calling goroutine, which must be the main thread, and
// written in parallel. The first failed write cancels the writes not yet
// started; scenes written before that are still marked saved. It returns
// the number of scenes written.
func (m *Manager) SaveAll(ctx context.Context) (int, error) {
	m.mu.RLock()
	var jobs []*pendingSave
	for _, e := range m.entries {
		s, ok := e.asset.(*scene.Scene)
		if !ok || e.meta.Virtual || e.meta.Path == "" || !s.IsDirty() {
			continue
		}
		jobs = append(jobs, &pendingSave{scene: s, path: e.meta.Path})
	}
	m.mu.RUnlock()
	slices.SortFunc(jobs, func(a, b *pendingSave) int { return strings.Compare(a.path, b.path) })

	for _, job := range jobs {
		data, err := encodeScene(job.scene, job.path)
		if err != nil {
			return 0, err
		}
		job.data = data
	}

	err := concurrent.Concurrent(ctx, sequence.From(jobs), m.workers,
		func(ctx context.Context, job *pendingSave) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stamp, err := m.writeFile(job.path, job.data)
			if err != nil {
				return err
			}
			job.stamp = stamp
			return nil
		})

	written := 0
	for _, job := range jobs {
		if job.stamp.IsZero() {
			continue
		}
		m.saved(job.scene, job.path, job.stamp)
		written++
	}
	if err != nil {
		m.logger.Error("saving scenes failed", log.Int("saved", written), log.Error(err))
	}
	return written, err
}

type decoded struct {
	meta  Metadata
	tree  map[string]any
	stamp time.Time
}

// LoadAll loads every registered scene that is not loaded yet. Files are
// read and decoded in parallel; scenes are then built on the calling
// goroutine, which must be the main thread. Loading is best effort: the
// scenes that could be built are returned along with the joined errors of
// the others. Each returned scene holds one reference.
func (m *Manager) LoadAll(ctx context.Context) ([]*scene.Scene, error) {
	m.mu.RLock()
	var pending []Metadata
	for _, e := range m.entries {
		if e.asset == nil && !e.meta.Virtual && e.meta.Kind == models.AssetKindScene {
			pending = append(pending, e.meta)
		}
	}
	m.mu.RUnlock()
	slices.SortFunc(pending, func(a, b Metadata) int { return strings.Compare(a.Path, b.Path) })

	results, errs := concurrent.ParallelMap(ctx, sequence.From(pending), m.workers,
		func(_ context.Context, meta Metadata) (decoded, error) {
			data, stamp, err := m.readFile(meta.Path)
			if err != nil {
				return decoded{}, err
			}
			tree, err := serialization.DecodeTree(data, serialization.FormatFromPath(meta.Path))
			if err != nil {
				return decoded{}, errors.Wrapf(err, "decoding %s", meta.Path)
			}
			return decoded{meta: meta, tree: tree, stamp: stamp}, nil
		})

	var (
		scenes []*scene.Scene
		failed []error
	)
	for i, res := range results {
		if errs[i] != nil {
			m.logger.Error("scene load failed",
				log.String("path", pending[i].Path),
				log.Error(errs[i]))
			failed = append(failed, errs[i])
			continue
		}
		s, err := m.build(res.meta, res.tree)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		a := m.adopt(res.meta.Handle, s, res.stamp)
		if loaded, ok := a.(*scene.Scene); ok {
			scenes = append(scenes, loaded)
		}
	}
	return scenes, joinErrors(failed)
}

// Reload rebuilds a loaded scene from its file in place, keeping the
// *scene.Scene value and its references.
func (m *Manager) Reload(h models.AssetHandle) error {
	s, ok := Get[*scene.Scene](m, h)
	if !ok {
		return fmt.Errorf("%w: %s is not loaded", ErrAssetNotFound, h)
	}
	meta, _ := m.Metadata(h)
	if meta.Path == "" {
		return fmt.Errorf("%w: %s", ErrNoPath, s.Name())
	}
	data, stamp, err := m.readFile(meta.Path)
	if err != nil {
		return err
	}
	r, err := serialization.Decode(data, serialization.FormatFromPath(meta.Path))
	if err != nil {
		return errors.Wrapf(err, "decoding %s", meta.Path)
	}
	if err := s.Deserialize(r); err != nil {
		m.logger.Warn("scene reloaded with faults",
			log.String("path", meta.Path),
			log.Error(err))
	}
	m.mu.Lock()
	if e, ok := m.entries[h]; ok {
		e.stamp = stamp
	}
	m.mu.Unlock()
	m.logger.Info("scene reloaded", log.String("path", meta.Path))
	return nil
}

// QueueReload asks the main thread to reload path at the next PollReloads.
// Safe from any goroutine.
func (m *Manager) QueueReload(path string) {
	m.reloads.Push(path)
}

// PollReloads reloads the scenes whose files changed since they were last
// loaded or saved. Scenes with unsaved edits are left alone. Call from the
// main thread; it returns the number of scenes reloaded.
func (m *Manager) PollReloads() int {
	paths := m.reloads.Drain()
	if len(paths) == 0 {
		return 0
	}
	slices.Sort(paths)
	paths = slices.Compact(paths)

	reloaded := 0
	for _, path := range paths {
		h, ok := m.Lookup(path)
		if !ok {
			continue
		}
		s, ok := Get[*scene.Scene](m, h)
		if !ok {
			continue
		}
		m.mu.RLock()
		stamp := m.entries[h].stamp
		rel := m.entries[h].meta.Path
		m.mu.RUnlock()
		if !modTime(m.abs(rel)).After(stamp) {
			continue
		}
		if s.IsDirty() {
			m.logger.Warn("scene changed on disk but has unsaved edits, not reloading",
				log.String("path", rel))
			continue
		}
		if err := m.Reload(h); err != nil {
			m.logger.Error("scene reload failed", log.String("path", rel), log.Error(err))
			continue
		}
		reloaded++
	}
	return reloaded
}

// Watch starts watching the asset root and feeds changes to PollReloads.
// The watcher stops when ctx is done.
func (m *Manager) Watch(ctx context.Context) (*Watcher, error) {
	w, err := NewWatcher(m.root, m.QueueReload, m.logger)
	if err != nil {
		return nil, err
	}
	go w.Run(ctx)
	return w, nil
}

// Close releases every loaded asset regardless of its reference count.
func (m *Manager) Close() error {
	m.mu.Lock()
	var loaded []Asset
	for h, e := range m.entries {
		if e.asset == nil {
			continue
		}
		loaded = append(loaded, e.asset)
		e.asset = nil
		e.refs = 0
		if e.meta.Virtual {
			delete(m.entries, h)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, a := range loaded {
		if c, ok := a.(closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return joinErrors(errs)
}
