package document

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var persists atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { persists.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Notify()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return persists.Load() == 1 }, time.Second, 5*time.Millisecond)
	// No further persists without further notifications.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), persists.Load())
}

func TestDebouncer_PersistsLatestState(t *testing.T) {
	var mu sync.Mutex
	state := ""
	var persisted string
	done := make(chan struct{}, 1)

	d := NewDebouncer(20*time.Millisecond, func() {
		mu.Lock()
		persisted = state
		mu.Unlock()
		done <- struct{}{}
	})
	defer d.Stop()

	mu.Lock()
	state = "draft one"
	mu.Unlock()
	d.Notify()

	mu.Lock()
	state = "draft two"
	mu.Unlock()
	d.Notify()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("persist never fired")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "draft two", persisted)
}

func TestDebouncer_FlushForcesPending(t *testing.T) {
	var persists atomic.Int32
	d := NewDebouncer(time.Hour, func() { persists.Add(1) })
	defer d.Stop()

	d.Notify()
	d.Flush()
	assert.Equal(t, int32(1), persists.Load())

	// Flush with nothing pending is a no-op.
	d.Flush()
	assert.Equal(t, int32(1), persists.Load())
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	var persists atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { persists.Add(1) })

	d.Notify()
	d.Stop()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), persists.Load())
}
