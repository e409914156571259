package messaging

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/academy-hub/attendance-hub/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markedEvent() shared.Event {
	return shared.NewAttendanceMarkedEvent("rec-1", "stu-1", shared.RoleStudent, "2026-10-19", "present", false,
		time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC))
}

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})

	var typed, all int
	require.NoError(t, bus.Subscribe(shared.EventAttendanceMarked, func(shared.Event) error { typed++; return nil }))
	require.NoError(t, bus.Subscribe(shared.EventAttendanceCheckedOut, func(shared.Event) error { typed += 100; return nil }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { all++; return nil }))

	require.NoError(t, bus.Publish(markedEvent()))
	assert.Equal(t, 1, typed)
	assert.Equal(t, 1, all)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})

	var reached bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { reached = true; return nil }))

	assert.NoError(t, bus.Publish(markedEvent()))
	assert.True(t, reached)
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		n.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(markedEvent()))
	}
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(5), n.Load())

	assert.ErrorIs(t, bus.Publish(markedEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}
