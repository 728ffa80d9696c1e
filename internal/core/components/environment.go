package components

import (
	"github.com/chewxy/math32"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/render"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
)

// Environment holds scene-wide lighting settings. A scene uses the first
// one found; further instances are ignored.
type Environment struct {
	scene.Base `copier:"-"`

	AmbientColor models.Color
	Exposure     float32
	Gamma        float32
}

func NewEnvironment() *Environment {
	return &Environment{AmbientColor: models.RGB(0.1, 0.1, 0.1), Exposure: 1, Gamma: 2.2}
}

func (e *Environment) OnDraw(ctx *render.Context) {
	if scene.FindFirst[Environment](e.Scene()) != e {
		return
	}
	ctx.Environment = render.Environment{
		Ambient:  e.AmbientColor,
		Exposure: math32.Max(e.Exposure, 0),
		Gamma:    math32.Max(e.Gamma, 0.1),
	}
}

func (e *Environment) Serialize(w serialization.Serializer) {
	w.Write("AmbientColor", e.AmbientColor)
	w.Write("Exposure", e.Exposure)
	w.Write("Gamma", e.Gamma)
}

func (e *Environment) Deserialize(d serialization.Deserializer) {
	d.Read("AmbientColor", &e.AmbientColor)
	d.Read("Exposure", &e.Exposure)
	d.Read("Gamma", &e.Gamma)
}
