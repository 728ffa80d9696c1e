package sequence

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinQueueOrder(t *testing.T) {
	q := NewMinQueue[uint32]()
	for _, v := range []uint32{5, 1, 4, 2, 3} {
		q.Enqueue(v)
	}
	top, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), top)

	var got []uint32
	for !q.IsEmpty() {
		v, _ := q.Dequeue()
		got = append(got, v)
	}
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, got)
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestQueueRemoveAndUpdate(t *testing.T) {
	q := NewPriorityQueue(func(a, b string) bool { return a < b })
	q.Enqueue("m")
	b := q.Enqueue("b")
	z := q.Enqueue("z")
	assert.True(t, q.Remove(b))
	assert.False(t, q.Remove(b))
	q.Update(z, "a")
	v, _ := q.Dequeue()
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, q.Len())
	q.Clear()
	assert.True(t, q.IsEmpty())
}

func TestIterator(t *testing.T) {
	it := From([]int{5, 2, 8, 1})
	assert.Equal(t, []int{8}, it.Filter(func(v int) bool { return v > 5 }).Collect())
	assert.Equal(t, []int{1, 2, 5, 8}, it.Sort(cmp.Compare[int]).Collect())
	assert.Equal(t, []int{5, 2}, it.Take(2).Collect())
	assert.Equal(t, 4, it.Count())

	v, ok := it.Find(func(v int) bool { return v < 3 })
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	first, ok := From([]int{}).First()
	assert.False(t, ok)
	assert.Zero(t, first)
	assert.True(t, it.Any(func(v int) bool { return v == 8 }))
	assert.Equal(t, []string{"5", "2"}, ToArray(it.Take(2), func(v int) string { return string(rune('0' + v)) }))
}
