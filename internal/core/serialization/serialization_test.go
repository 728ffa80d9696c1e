package serialization

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fussion/engine/internal/core/models"
)

type sample struct {
	I8     int8
	I16    int16
	I32    int32
	I64    int64
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	F32    float32
	F64    float64
	Flag   bool
	Name   string
	File   Path
	V2     mgl32.Vec2
	V3     mgl32.Vec3
	V4     mgl32.Vec4
	Tint   models.Color
	Target models.Handle
	Mesh   models.AssetHandle
	X      int
}

func (s *sample) Serialize(w Serializer) {
	w.Write("I8", s.I8)
	w.Write("I16", s.I16)
	w.Write("I32", s.I32)
	w.Write("I64", s.I64)
	w.Write("U8", s.U8)
	w.Write("U16", s.U16)
	w.Write("U32", s.U32)
	w.Write("U64", s.U64)
	w.Write("F32", s.F32)
	w.Write("F64", s.F64)
	w.Write("Flag", s.Flag)
	w.Write("Name", s.Name)
	w.Write("File", s.File)
	w.BeginObject("Vectors")
	w.Write("V2", s.V2)
	w.Write("V3", s.V3)
	w.Write("V4", s.V4)
	w.EndObject()
	w.Write("Tint", s.Tint)
	w.Write("Target", s.Target)
	w.Write("Mesh", s.Mesh)
	w.Write("X", s.X)
}

func (s *sample) Deserialize(r Deserializer) {
	r.Read("I8", &s.I8)
	r.Read("I16", &s.I16)
	r.Read("I32", &s.I32)
	r.Read("I64", &s.I64)
	r.Read("U8", &s.U8)
	r.Read("U16", &s.U16)
	r.Read("U32", &s.U32)
	r.Read("U64", &s.U64)
	r.Read("F32", &s.F32)
	r.Read("F64", &s.F64)
	r.Read("Flag", &s.Flag)
	r.Read("Name", &s.Name)
	r.Read("File", &s.File)
	r.BeginObject("Vectors")
	r.Read("V2", &s.V2)
	r.Read("V3", &s.V3)
	r.Read("V4", &s.V4)
	r.EndObject()
	r.Read("Tint", &s.Tint)
	r.Read("Target", &s.Target)
	r.Read("Mesh", &s.Mesh)
	r.Read("X", &s.X)
}

func fullSample() sample {
	return sample{
		I8: math.MinInt8, I16: -1234, I32: math.MaxInt32, I64: math.MinInt64,
		U8: math.MaxUint8, U16: 65000, U32: math.MaxUint32, U64: math.MaxUint64,
		F32: 0.1, F64: math.Pi, Flag: true, Name: "Player", File: "scenes/main.scene",
		V2: mgl32.Vec2{1, 2}, V3: mgl32.Vec3{1.5, -2, 3}, V4: mgl32.Vec4{0, 0.25, 0.5, 1},
		Tint: models.Color{R: 0.2, G: 0.4, B: 0.6, A: 1}, Target: models.Handle(math.MaxUint64 - 7),
		Mesh: models.NewAssetHandle(), X: 7,
	}
}

func TestRoundTripFormats(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(format.String(), func(t *testing.T) {
			in := fullSample()
			data, err := Marshal(&in, format)
			require.NoError(t, err)

			var out sample
			require.NoError(t, Unmarshal(data, format, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestRoundTripInMemory(t *testing.T) {
	in := fullSample()
	w := NewWriter()
	in.Serialize(w)
	root, err := w.Root()
	require.NoError(t, err)

	var out sample
	out.Deserialize(NewReader(root))
	assert.Equal(t, in, out)
}

func TestMissingFieldKeepsDefault(t *testing.T) {
	out := sample{X: 42}
	require.NoError(t, Unmarshal([]byte(`{"Name":"only"}`), FormatJSON, &out))
	assert.Equal(t, 42, out.X)
	assert.Equal(t, "only", out.Name)
}

func TestMistypedFieldKeepsDefault(t *testing.T) {
	out := sample{X: 42, U8: 9}
	require.NoError(t, Unmarshal([]byte(`{"X":"nope","U8":300}`), FormatJSON, &out))
	assert.Equal(t, 42, out.X)
	assert.Equal(t, uint8(9), out.U8)
}

func TestReadOr(t *testing.T) {
	r := NewReader(map[string]any{"a": 1})
	var a, b int
	assert.True(t, ReadOr(r, "a", &a, 5))
	assert.False(t, ReadOr(r, "b", &b, 5))
	assert.Equal(t, 1, a)
	assert.Equal(t, 5, b)
}

func TestMissingObjectStillPairs(t *testing.T) {
	r := NewReader(map[string]any{"Name": "x"})
	assert.False(t, r.BeginObject("Missing"))
	var name string
	assert.False(t, r.Read("Name", &name))
	r.EndObject()
	assert.Equal(t, 1, r.Depth())
	assert.True(t, r.Read("Name", &name))
	assert.Equal(t, "x", name)

	n, ok := r.BeginArray("Nope")
	assert.False(t, ok)
	assert.Zero(t, n)
	r.EndArray()
	assert.Equal(t, 1, r.Depth())
}

func TestWriterUnbalanced(t *testing.T) {
	w := NewWriter()
	w.BeginObject("a")
	_, err := w.Root()
	assert.ErrorIs(t, err, ErrUnbalanced)

	w = NewWriter()
	w.EndObject()
	_, err = w.Root()
	assert.ErrorIs(t, err, ErrUnbalanced)

	w = NewWriter()
	w.BeginArray("a")
	w.EndObject()
	_, err = w.Root()
	assert.ErrorIs(t, err, ErrUnbalanced)
}

func TestWriterUnsupportedType(t *testing.T) {
	w := NewWriter()
	w.Write("ch", make(chan int))
	_, err := w.Root()
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

type point struct {
	X, Y int
}

func (p *point) Serialize(s Serializer) {
	s.Write("X", p.X)
	s.Write("Y", p.Y)
}

func (p *point) Deserialize(d Deserializer) {
	d.Read("X", &p.X)
	d.Read("Y", &p.Y)
}

func TestCollections(t *testing.T) {
	w := NewWriter()
	WriteCollection(w, "Ints", []int{1, 2, 3})
	WriteCollection(w, "Nested", [][]string{{"a"}, {"b", "c"}, {}})
	WriteCollection(w, "Points", []point{{1, 2}, {3, 4}})
	WriteCollection(w, "Ptrs", []*point{{5, 6}})
	WriteCollection(w, "Vecs", []mgl32.Vec3{{1, 2, 3}})
	data, err := Encode(w, FormatJSON)
	require.NoError(t, err)

	r, err := Decode(data, FormatJSON)
	require.NoError(t, err)

	var ints []int
	var nested [][]string
	var points []point
	var ptrs []*point
	var vecs []mgl32.Vec3
	require.True(t, ReadCollection(r, "Ints", &ints))
	require.True(t, ReadCollection(r, "Nested", &nested))
	require.True(t, ReadCollection(r, "Points", &points))
	require.True(t, ReadCollection(r, "Ptrs", &ptrs))
	require.True(t, ReadCollection(r, "Vecs", &vecs))

	assert.Equal(t, []int{1, 2, 3}, ints)
	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {}}, nested)
	assert.Equal(t, []point{{1, 2}, {3, 4}}, points)
	require.Len(t, ptrs, 1)
	assert.Equal(t, point{5, 6}, *ptrs[0])
	assert.Equal(t, []mgl32.Vec3{{1, 2, 3}}, vecs)
	assert.Equal(t, 1, r.Depth())

	keep := []int{9}
	assert.False(t, ReadCollection(r, "Missing", &keep))
	assert.Equal(t, []int{9}, keep)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.scene.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("b.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("b.scene"))
}

func TestDecodeRejectsNonObject(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`), FormatJSON)
	assert.ErrorIs(t, err, ErrNotAnObject)
}
