package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_ EventType, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ EventType, handlers int, err error, _ int64) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got any
	_, err := b.Subscribe("entity.created", func(e Event) error {
		got = e.Data()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, b.Publish(NewEvent("entity.created", "tester", 123)))
	assert.Equal(t, 123, got)
}

func TestDeliveryOrderIncludesCatchAll(t *testing.T) {
	b := New()
	var order []string
	_, _ = b.Subscribe("x", func(Event) error { order = append(order, "typed-1"); return nil })
	_, _ = b.SubscribeAll(func(Event) error { order = append(order, "all"); return nil })
	_, _ = b.Subscribe("x", func(Event) error { order = append(order, "typed-2"); return nil })
	_, _ = b.Subscribe("y", func(Event) error { order = append(order, "other"); return nil })

	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))
	assert.Equal(t, []string{"typed-1", "all", "typed-2"}, order)
}

func TestCancel(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("x", func(Event) error { count++; return nil })
	require.NoError(t, err)
	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))
	assert.Equal(t, 1, count)
	assert.False(t, sub.IsActive())
	assert.NotEmpty(t, sub.ID())
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestErrorsAreJoined(t *testing.T) {
	b := New()
	e1, e2 := errors.New("one"), errors.New("two")
	_, _ = b.Subscribe("x", func(Event) error { return e1 })
	_, _ = b.Subscribe("x", func(Event) error { return e2 })
	err := b.PublishBatch(NewEvent("x", "src", nil))
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestObserversAndMetrics(t *testing.T) {
	b := New()
	obs := &testObserver{}
	b.AddObserver(obs)
	delivered := 0
	_, _ = b.Subscribe("x", func(Event) error { delivered++; return nil })

	require.NoError(t, b.PublishBatch(NewEvent("x", "src", nil), NewEvent("y", "src", nil)))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 2, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)
	m := b.GetMetrics()
	assert.Equal(t, uint64(2), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, uint64(1), m.SubscribersActive)

	b.RemoveObserver(obs)
	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))
	assert.Equal(t, 2, obs.publishCount)
}

func TestCancelWhilePublishing(t *testing.T) {
	b := New()
	var calls atomic.Int64
	sub, err := b.Subscribe("x", func(Event) error { calls.Add(1); return nil })
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = b.Publish(NewEvent("x", "src", i))
		}
	}()
	go func() {
		defer wg.Done()
		_ = sub.Cancel()
	}()
	wg.Wait()

	assert.False(t, sub.IsActive())
	after := calls.Load()
	require.NoError(t, b.Publish(NewEvent("x", "src", nil)))
	assert.Equal(t, after, calls.Load())
}
