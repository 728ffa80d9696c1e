package components

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/fussion/engine/internal/core/models"
	"github.com/fussion/engine/internal/core/render"
	"github.com/fussion/engine/internal/core/scene"
	"github.com/fussion/engine/internal/core/serialization"
)

type Shape uint8

const (
	ShapeBox Shape = iota
	ShapeSphere
)

func (s Shape) String() string {
	if s == ShapeSphere {
		return "sphere"
	}
	return "box"
}

var (
	colliderColor = models.Color{R: 0.2, G: 1, B: 0.2, A: 1}
	triggerColor  = models.Color{R: 1, G: 0.8, B: 0.1, A: 1}
)

// Collider describes a collision volume. Size holds the full box extents,
// or the diameter in X for a sphere. It has no runtime behaviour beyond
// editor gizmos.
type Collider struct {
	scene.Base `copier:"-"`

	Shape     Shape
	Size      mgl32.Vec3
	Offset    mgl32.Vec3
	IsTrigger bool
}

func NewCollider() *Collider {
	return &Collider{Size: mgl32.Vec3{1, 1, 1}}
}

func (c *Collider) OnDebugDraw(ctx *render.Context) {
	color := colliderColor
	if c.IsTrigger {
		color = triggerColor
	}
	world := c.Entity().WorldMatrix().Mul4(mgl32.Translate3D(c.Offset.Elem()))
	switch c.Shape {
	case ShapeSphere:
		r := math32.Abs(c.Size.X()) / 2
		ctx.Circle(world, r, 24, color)
		ctx.Circle(world.Mul4(mgl32.HomogRotate3DX(math32.Pi/2)), r, 24, color)
		ctx.Circle(world.Mul4(mgl32.HomogRotate3DY(math32.Pi/2)), r, 24, color)
	default:
		ctx.Box(world, c.Size.Mul(0.5), color)
	}
}

func (c *Collider) Serialize(w serialization.Serializer) {
	w.Write("Shape", uint8(c.Shape))
	w.Write("Size", c.Size)
	w.Write("Offset", c.Offset)
	w.Write("IsTrigger", c.IsTrigger)
}

func (c *Collider) Deserialize(d serialization.Deserializer) {
	var shape uint8
	if d.Read("Shape", &shape) && Shape(shape) <= ShapeSphere {
		c.Shape = Shape(shape)
	}
	d.Read("Size", &c.Size)
	d.Read("Offset", &c.Offset)
	d.Read("IsTrigger", &c.IsTrigger)
}
