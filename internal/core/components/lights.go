package components

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/render"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
)

// PointLight emits light in all directions from the entity's world
// position, fading to zero at Radius.
type PointLight struct {
	scene.Base `copier:"-"`

	Color     models.Color
	Intensity float32
	Radius    float32
}

// NewPointLight returns a white light of unit intensity and radius 10.
func NewPointLight() *PointLight {
	return &PointLight{Color: models.White, Intensity: 1, Radius: 10}
}

func (l *PointLight) OnDraw(ctx *render.Context) {
	if l.Intensity <= 0 || l.Radius <= 0 {
		return
	}
	ctx.AddPointLight(render.PointLight{
		Position:  l.Entity().WorldPosition(),
		Color:     l.Color,
		Intensity: l.Intensity,
		Radius:    l.Radius,
	})
}

func (l *PointLight) OnDebugDraw(ctx *render.Context) {
	world := mgl32.Translate3D(l.Entity().WorldPosition().Elem())
	ctx.Circle(world, l.Radius, 32, l.Color)
	ctx.Circle(world.Mul4(mgl32.HomogRotate3DX(math32.Pi/2)), l.Radius, 32, l.Color)
	ctx.Circle(world.Mul4(mgl32.HomogRotate3DY(math32.Pi/2)), l.Radius, 32, l.Color)
}

// Attenuation is the smooth falloff factor at distance d: 1 at the light,
// 0 at and beyond Radius.
func (l *PointLight) Attenuation(d float32) float32 {
	if l.Radius <= 0 {
		return 0
	}
	x := clamp(d/l.Radius, 0, 1)
	f := 1 - x*x
	return f * f
}

func (l *PointLight) Serialize(w serialization.Serializer) {
	w.Write("Color", l.Color)
	w.Write("Intensity", l.Intensity)
	w.Write("Radius", l.Radius)
}

func (l *PointLight) Deserialize(d serialization.Deserializer) {
	d.Read("Color", &l.Color)
	d.Read("Intensity", &l.Intensity)
	d.Read("Radius", &l.Radius)
	l.Intensity = math32.Max(l.Intensity, 0)
	l.Radius = math32.Max(l.Radius, 0)
}

// DirectionalLight lights the whole scene from Direction, in world space.
type DirectionalLight struct {
	scene.Base `copier:"-"`

	Color     models.Color
	Intensity float32
	Direction mgl32.Vec3
}

// NewDirectionalLight returns a white light pointing straight down.
func NewDirectionalLight() *DirectionalLight {
	return &DirectionalLight{Color: models.White, Intensity: 1, Direction: mgl32.Vec3{0, -1, 0}}
}

func (l *DirectionalLight) OnDraw(ctx *render.Context) {
	dir := l.Direction
	if dir.Len() == 0 {
		return
	}
	// rotated by the owning entity, so a light can be aimed with its transform
	dir = l.Entity().WorldMatrix().Mul4x1(dir.Vec4(0)).Vec3().Normalize()
	ctx.AddDirectionalLight(render.DirectionalLight{
		Direction: dir,
		Color:     l.Color,
		Intensity: l.Intensity,
	})
}

func (l *DirectionalLight) Serialize(w serialization.Serializer) {
	w.Write("Color", l.Color)
	w.Write("Intensity", l.Intensity)
	w.Write("Direction", l.Direction)
}

func (l *DirectionalLight) Deserialize(d serialization.Deserializer) {
	d.Read("Color", &l.Color)
	d.Read("Intensity", &l.Intensity)
	d.Read("Direction", &l.Direction)
}

func clamp(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}
