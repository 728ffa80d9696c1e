package serialization

var _ Deserializer = (*Reader)(nil)

type readFrame struct {
	isArray bool
	object  map[string]any
	array   []any
	cursor  int
}

// Reader is a Deserializer over a decoded value tree.
type Reader struct {
	stack []*readFrame
}

// NewReader returns a Reader positioned at root. A nil root reads as empty.
func NewReader(root map[string]any) *Reader {
	if root == nil {
		root = map[string]any{}
	}
	return &Reader{stack: []*readFrame{{object: root}}}
}

func (r *Reader) top() *readFrame { return r.stack[len(r.stack)-1] }

// lookup resolves name in an object frame, or takes the next element of an
// array frame.
func (r *Reader) lookup(name string) (any, bool) {
	top := r.top()
	if top.isArray {
		if top.cursor >= len(top.array) {
			return nil, false
		}
		v := top.array[top.cursor]
		top.cursor++
		return v, true
	}
	v, ok := top.object[name]
	return v, ok
}

func (r *Reader) BeginObject(name string) bool {
	v, found := r.lookup(name)
	obj, ok := asObject(v)
	if !found || !ok {
		r.stack = append(r.stack, &readFrame{object: map[string]any{}})
		return false
	}
	r.stack = append(r.stack, &readFrame{object: obj})
	return true
}

func (r *Reader) EndObject() { r.pop() }

func (r *Reader) BeginArray(name string) (int, bool) {
	v, found := r.lookup(name)
	arr, ok := v.([]any)
	if !found || !ok {
		r.stack = append(r.stack, &readFrame{isArray: true})
		return 0, false
	}
	r.stack = append(r.stack, &readFrame{isArray: true, array: arr})
	return len(arr), true
}

func (r *Reader) EndArray() { r.pop() }

func (r *Reader) pop() {
	if len(r.stack) > 1 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

func (r *Reader) Read(name string, out any) bool {
	v, ok := r.lookup(name)
	if !ok {
		return false
	}
	return decodeValue(v, out)
}

// Has reports whether name exists in the current object frame.
func (r *Reader) Has(name string) bool {
	top := r.top()
	if top.isArray {
		return false
	}
	_, ok := top.object[name]
	return ok
}

// Depth is the number of open frames, including the root.
func (r *Reader) Depth() int { return len(r.stack) }

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	default:
		return nil, false
	}
}
