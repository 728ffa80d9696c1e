package serialization

import "fmt"

var _ Serializer = (*Writer)(nil)

type writeFrame struct {
	name    string
	isArray bool
	object  map[string]any
	array   []any
}

func (f *writeFrame) value() any {
	if f.isArray {
		if f.array == nil {
			return []any{}
		}
		return f.array
	}
	return f.object
}

// Writer is a Serializer that builds an in-memory value tree.
type Writer struct {
	stack []*writeFrame
	err   error
}

// NewWriter returns a Writer positioned at the root object.
func NewWriter() *Writer {
	return &Writer{stack: []*writeFrame{{object: make(map[string]any)}}}
}

func (w *Writer) top() *writeFrame { return w.stack[len(w.stack)-1] }

func (w *Writer) attach(name string, v any) {
	top := w.top()
	if top.isArray {
		top.array = append(top.array, v)
		return
	}
	top.object[name] = v
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) BeginObject(name string) {
	w.stack = append(w.stack, &writeFrame{name: name, object: make(map[string]any)})
}

func (w *Writer) EndObject() { w.end(false) }

func (w *Writer) BeginArray(name string) {
	w.stack = append(w.stack, &writeFrame{name: name, isArray: true})
}

func (w *Writer) EndArray() { w.end(true) }

func (w *Writer) end(array bool) {
	if len(w.stack) <= 1 {
		w.fail(fmt.Errorf("%w: end without begin", ErrUnbalanced))
		return
	}
	done := w.top()
	if done.isArray != array {
		w.fail(fmt.Errorf("%w: frame %q closed with the wrong end call", ErrUnbalanced, done.name))
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.attach(done.name, done.value())
}

func (w *Writer) Write(name string, value any) {
	v, ok := encodeValue(value)
	if !ok {
		w.fail(fmt.Errorf("%w: %q has type %T", ErrUnsupportedType, name, value))
		return
	}
	w.attach(name, v)
}

// Depth is the number of open frames, including the root.
func (w *Writer) Depth() int { return len(w.stack) }

// Err returns the first protocol error recorded by the writer.
func (w *Writer) Err() error { return w.err }

// Root returns the finished tree. It fails when frames are still open or a
// write was rejected.
func (w *Writer) Root() (map[string]any, error) {
	if w.err != nil {
		return nil, w.err
	}
	if len(w.stack) != 1 {
		return nil, fmt.Errorf("%w: %d frame(s) left open", ErrUnbalanced, len(w.stack)-1)
	}
	return w.stack[0].object, nil
}
