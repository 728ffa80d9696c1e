// Package serialization implements the engine-wide persistence protocol.
//
// Components and scenes write themselves through a Serializer and read
// themselves back through a Deserializer. Both walk a stack of frames: the
// root frame is an implicit object, BeginObject/BeginArray push a frame and
// EndObject/EndArray pop it, splicing the finished value into the parent
// under its name (object parent) or at the next position (array parent).
// Names are ignored inside array frames.
//
// The frames build a backend-neutral value tree that is encoded as JSON or
// YAML by Encode and decoded by Decode.
package serialization

// Path is a file system path stored as a string.
type Path string

// Serializer receives the persistent state of a value.
//
// Write accepts every signed and unsigned integer width, float32, float64,
// bool, string, Path, mgl32.Vec2/Vec3/Vec4, models.Color, models.Handle and
// models.AssetHandle. Other types record ErrUnsupportedType.
type Serializer interface {
	BeginObject(name string)
	EndObject()
	BeginArray(name string)
	EndArray()
	Write(name string, value any)
}

// Deserializer is the reading side of Serializer.
//
// BeginObject and BeginArray always push a frame, even when the key is
// missing, so every call must be paired with EndObject/EndArray. Read stores
// into out (a pointer to one of the Write types) and reports whether it did;
// a missing or mistyped key leaves *out untouched.
type Deserializer interface {
	BeginObject(name string) bool
	EndObject()
	BeginArray(name string) (int, bool)
	EndArray()
	Read(name string, out any) bool
}

// Serializable is implemented by values that persist through the protocol.
type Serializable interface {
	Serialize(s Serializer)
	Deserialize(d Deserializer)
}

// ReadOr is Read with an explicit default for out.
func ReadOr[T any](d Deserializer, name string, out *T, def T) bool {
	if d.Read(name, out) {
		return true
	}
	*out = def
	return false
}
