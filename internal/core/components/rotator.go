package components

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
)

// Rotator spins its entity around Axis at Speed degrees per second.
type Rotator struct {
	scene.Base `copier:"-"`

	Axis  mgl32.Vec3
	Speed float32
}

func NewRotator() *Rotator {
	return &Rotator{Axis: mgl32.Vec3{0, 1, 0}, Speed: 45}
}

func (r *Rotator) OnUpdate(delta float32) {
	if r.Speed == 0 || r.Axis.Len() == 0 {
		return
	}
	e := r.Entity()
	step := r.Axis.Normalize().Mul(r.Speed * delta)
	rot := e.Rotation().Add(step)
	for i := range rot {
		rot[i] = wrapDegrees(rot[i])
	}
	e.SetRotation(rot)
}

// wrapDegrees maps a to [0, 360).
func wrapDegrees(a float32) float32 {
	a = math32.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func (r *Rotator) Serialize(w serialization.Serializer) {
	w.Write("Axis", r.Axis)
	w.Write("Speed", r.Speed)
}

func (r *Rotator) Deserialize(d serialization.Deserializer) {
	d.Read("Axis", &r.Axis)
	d.Read("Speed", &r.Speed)
}
