package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/fussion/engine/internal/core/serialization"
)

// Transform is a local position, euler rotation in degrees (applied X, Y,
// then Z) and scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

// Identity returns the neutral transform.
func Identity() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Quat returns the rotation as a quaternion.
func (t Transform) Quat() mgl32.Quat {
	return mgl32.AnglesToQuat(
		mgl32.DegToRad(t.Rotation.X()),
		mgl32.DegToRad(t.Rotation.Y()),
		mgl32.DegToRad(t.Rotation.Z()),
		mgl32.XYZ,
	)
}

// Matrix returns translation * rotation * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translate.Mul4(t.Quat().Mat4()).Mul4(scale)
}

// Forward is the local -Z axis after rotation.
func (t Transform) Forward() mgl32.Vec3 {
	return t.Quat().Rotate(mgl32.Vec3{0, 0, -1})
}

func (t *Transform) Serialize(s serialization.Serializer) {
	s.Write("Position", t.Position)
	s.Write("Rotation", t.Rotation)
	s.Write("Scale", t.Scale)
}

func (t *Transform) Deserialize(d serialization.Deserializer) {
	d.Read("Position", &t.Position)
	d.Read("Rotation", &t.Rotation)
	d.Read("Scale", &t.Scale)
}
