package models

import "github.com/google/uuid"

// AssetHandle identifies an asset known to the asset manager.
type AssetHandle uuid.UUID

// NilAsset is the empty asset reference.
var NilAsset AssetHandle

// NewAssetHandle returns a random asset handle.
func NewAssetHandle() AssetHandle { return AssetHandle(uuid.New()) }

// ParseAssetHandle parses the canonical UUID text form.
func ParseAssetHandle(s string) (AssetHandle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilAsset, err
	}
	return AssetHandle(id), nil
}

func (h AssetHandle) IsNil() bool { return h == NilAsset }

func (h AssetHandle) String() string { return uuid.UUID(h).String() }

// AssetKind tags the concrete type behind an AssetHandle.
type AssetKind uint8

const (
	AssetKindUnknown AssetKind = iota
	AssetKindScene
	AssetKindMesh
	AssetKindMaterial
	AssetKindTexture
	AssetKindScript
)

func (k AssetKind) String() string {
	switch k {
	case AssetKindScene:
		return "scene"
	case AssetKindMesh:
		return "mesh"
	case AssetKindMaterial:
		return "material"
	case AssetKindTexture:
		return "texture"
	case AssetKindScript:
		return "script"
	default:
		return "unknown"
	}
}

// ParseAssetKind is the inverse of AssetKind.String.
func ParseAssetKind(s string) AssetKind {
	for k := AssetKindScene; k <= AssetKindScript; k++ {
		if k.String() == s {
			return k
		}
	}
	return AssetKindUnknown
}
