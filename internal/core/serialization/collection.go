package serialization

import "reflect"

var serializableType = reflect.TypeFor[Serializable]()

// WriteCollection writes items as an array under name. Elements that are
// Serializable become nested objects, nested slices become nested arrays and
// everything else goes through Write.
func WriteCollection[T any](s Serializer, name string, items []T) {
	s.BeginArray(name)
	for i := range items {
		writeElement(s, reflect.ValueOf(&items[i]).Elem())
	}
	s.EndArray()
}

func writeElement(s Serializer, rv reflect.Value) {
	if rv.CanAddr() && rv.Kind() != reflect.Pointer && rv.Addr().Type().Implements(serializableType) {
		s.BeginObject("")
		rv.Addr().Interface().(Serializable).Serialize(s)
		s.EndObject()
		return
	}
	if rv.Type().Implements(serializableType) {
		s.BeginObject("")
		if !(rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) || !rv.IsNil() {
			rv.Interface().(Serializable).Serialize(s)
		}
		s.EndObject()
		return
	}
	if rv.Kind() == reflect.Slice {
		s.BeginArray("")
		for i := 0; i < rv.Len(); i++ {
			writeElement(s, rv.Index(i))
		}
		s.EndArray()
		return
	}
	s.Write("", rv.Interface())
}

// ReadCollection reads the array under name into out. When the array is
// missing out is left untouched and false is returned.
func ReadCollection[T any](d Deserializer, name string, out *[]T) bool {
	n, ok := d.BeginArray(name)
	defer d.EndArray()
	if !ok {
		return false
	}
	items := make([]T, n)
	for i := range items {
		readElement(d, reflect.ValueOf(&items[i]).Elem())
	}
	*out = items
	return true
}

func readElement(d Deserializer, rv reflect.Value) {
	if rv.Kind() == reflect.Pointer && rv.Type().Implements(serializableType) {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		d.BeginObject("")
		rv.Interface().(Serializable).Deserialize(d)
		d.EndObject()
		return
	}
	if rv.Addr().Type().Implements(serializableType) {
		d.BeginObject("")
		rv.Addr().Interface().(Serializable).Deserialize(d)
		d.EndObject()
		return
	}
	if rv.Kind() == reflect.Slice {
		n, ok := d.BeginArray("")
		if ok {
			items := reflect.MakeSlice(rv.Type(), n, n)
			for i := 0; i < n; i++ {
				readElement(d, items.Index(i))
			}
			rv.Set(items)
		}
		d.EndArray()
		return
	}
	d.Read("", rv.Addr().Interface())
}
