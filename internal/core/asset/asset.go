// Package asset tracks the engine's assets by handle, loads and saves
// scene files and reloads them when they change on disk.
//
// The Manager's bookkeeping is safe for concurrent use, but scenes are
// built, reloaded and released on the main thread only. Background work
// (file decoding, file watching) hands its results over through queues that
// the frame driver drains.
package asset

import (
	"path/filepath"
	"strings"

	"github.com/fussion/engine/internal/core/models"
)

// Asset is anything the manager can own.
type Asset interface {
	AssetHandle() models.AssetHandle
	AssetKind() models.AssetKind
}

// Metadata describes a registered asset. Virtual assets live in memory only
// and have no Path.
type Metadata struct {
	Handle  models.AssetHandle
	Path    string
	Kind    models.AssetKind
	Virtual bool
}

var extensionKinds = map[string]models.AssetKind{
	".scene": models.AssetKindScene,
	".mesh":  models.AssetKindMesh,
	".obj":   models.AssetKindMesh,
	".gltf":  models.AssetKindMesh,
	".glb":   models.AssetKindMesh,
	".mat":   models.AssetKindMaterial,
	".png":   models.AssetKindTexture,
	".jpg":   models.AssetKindTexture,
	".jpeg":  models.AssetKindTexture,
	".hdr":   models.AssetKindTexture,
	".lua":   models.AssetKindScript,
}

// KindFromPath classifies a file by extension. "x.scene.json" and
// "x.scene.yaml" are scenes too.
func KindFromPath(path string) models.AssetKind {
	name := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".json", ".yaml", ".yml"} {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok && strings.HasSuffix(trimmed, ".scene") {
			return models.AssetKindScene
		}
	}
	return extensionKinds[filepath.Ext(name)]
}

// closer is implemented by assets that release resources when their last
// reference goes away; *scene.Scene is one.
type closer interface {
	Close() error
}
