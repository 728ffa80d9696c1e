package components

import (
	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/render"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
)

// MeshRenderer submits one mesh with one material. A nil mesh draws nothing.
type MeshRenderer struct {
	scene.Base `copier:"-"`

	Mesh        models.AssetHandle
	Material    models.AssetHandle
	CastShadows bool
}

func NewMeshRenderer() *MeshRenderer {
	return &MeshRenderer{CastShadows: true}
}

func (m *MeshRenderer) OnDraw(ctx *render.Context) {
	if m.Mesh.IsNil() {
		return
	}
	e := m.Entity()
	ctx.Draw(render.DrawItem{
		Mesh:        m.Mesh,
		Material:    m.Material,
		World:       e.WorldMatrix(),
		PickID:      e.LocalID(),
		CastShadows: m.CastShadows,
	})
}

func (m *MeshRenderer) Serialize(w serialization.Serializer) {
	w.Write("Mesh", m.Mesh)
	w.Write("Material", m.Material)
	w.Write("CastShadows", m.CastShadows)
}

func (m *MeshRenderer) Deserialize(d serialization.Deserializer) {
	d.Read("Mesh", &m.Mesh)
	d.Read("Material", &m.Material)
	d.Read("CastShadows", &m.CastShadows)
}
