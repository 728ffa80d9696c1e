// Package render defines the per-frame context the scene graph fills in
// during its draw fan-out. The renderer owns it and resets it every frame;
// components must not keep it past the call.
package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/fussion/engine/internal/core/models"
)

type PointLight struct {
	Position  mgl32.Vec3
	Color     models.Color
	Intensity float32
	Radius    float32
}

type DirectionalLight struct {
	Direction mgl32.Vec3
	Color     models.Color
	Intensity float32
}

// DrawItem is one mesh submission. PickID is the scene-local id written to
// the object-picking buffer; 0 means "no entity".
type DrawItem struct {
	Mesh        models.AssetHandle
	Material    models.AssetHandle
	World       mgl32.Mat4
	PickID      uint32
	CastShadows bool
}

type DebugLine struct {
	From, To mgl32.Vec3
	Color    models.Color
}

type Environment struct {
	Ambient  models.Color
	Exposure float32
	Gamma    float32
}

// Context accumulates the contributions of one frame.
type Context struct {
	Frame             uint64
	Camera            mgl32.Mat4
	PointLights       []PointLight
	DirectionalLights []DirectionalLight
	DrawItems         []DrawItem
	DebugLines        []DebugLine
	Environment       Environment
}

// NewContext returns a context with a neutral environment.
func NewContext() *Context {
	c := &Context{}
	c.Reset(0)
	return c
}

// Reset clears the contributions but keeps the allocated capacity.
func (c *Context) Reset(frame uint64) {
	c.Frame = frame
	c.Camera = mgl32.Ident4()
	c.PointLights = c.PointLights[:0]
	c.DirectionalLights = c.DirectionalLights[:0]
	c.DrawItems = c.DrawItems[:0]
	c.DebugLines = c.DebugLines[:0]
	c.Environment = Environment{Ambient: models.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}, Exposure: 1, Gamma: 2.2}
}

func (c *Context) AddPointLight(l PointLight) { c.PointLights = append(c.PointLights, l) }

func (c *Context) AddDirectionalLight(l DirectionalLight) {
	c.DirectionalLights = append(c.DirectionalLights, l)
}

func (c *Context) Draw(item DrawItem) { c.DrawItems = append(c.DrawItems, item) }

func (c *Context) Line(from, to mgl32.Vec3, color models.Color) {
	c.DebugLines = append(c.DebugLines, DebugLine{From: from, To: to, Color: color})
}

// Box adds the twelve edges of an oriented box given its world matrix and
// half extents.
func (c *Context) Box(world mgl32.Mat4, half mgl32.Vec3, color models.Color) {
	var corners [8]mgl32.Vec3
	for i := range corners {
		local := mgl32.Vec3{half.X(), half.Y(), half.Z()}
		if i&1 != 0 {
			local[0] = -local[0]
		}
		if i&2 != 0 {
			local[1] = -local[1]
		}
		if i&4 != 0 {
			local[2] = -local[2]
		}
		corners[i] = mgl32.TransformCoordinate(local, world)
	}
	for i := range corners {
		for bit := 1; bit < 8; bit <<= 1 {
			if j := i | bit; j != i {
				c.Line(corners[i], corners[j], color)
			}
		}
	}
}

// Circle adds a polyline circle of the given radius in the plane spanned by
// the world matrix's X and Y axes.
func (c *Context) Circle(world mgl32.Mat4, radius float32, segments int, color models.Color) {
	if segments < 3 {
		segments = 3
	}
	prev := mgl32.TransformCoordinate(mgl32.Vec3{radius, 0, 0}, world)
	for i := 1; i <= segments; i++ {
		a := float32(i) / float32(segments) * 2 * pi
		next := mgl32.TransformCoordinate(mgl32.Vec3{radius * cos(a), radius * sin(a), 0}, world)
		c.Line(prev, next, color)
		prev = next
	}
}
