// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"context"
	"testing"
	"time"

	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mounted(v bool) func() bool {
	return func() bool { return v }
}

func TestDebouncePerSource(t *testing.T) {
	tests := []struct {
		name    string
		gap     uint32
		applied int
	}{
		{"bounce", 50, 1},
		{"just under", 199, 1},
		{"exactly 200ms", 200, 2},
		{"well apart", 1000, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator(200, mounted(true))
			n := 0
			if a.Accept(Edge{Source: MountButton, At: 1000}) {
				n++
			}
			if a.Accept(Edge{Source: MountButton, At: clock.Ticks(1000 + tt.gap)}) {
				n++
			}
			assert.Equal(t, tt.applied, n)
			assert.Equal(t, tt.applied == 1, a.Intents().WantMounted)
		})
	}
}

func TestDebounceIsNotGlobal(t *testing.T) {
	a := NewAggregator(200, mounted(true))
	assert.True(t, a.Accept(Edge{Source: MountButton, At: 0}))
	assert.True(t, a.Accept(Edge{Source: RecordButton, At: 10}))

	in := a.Intents()
	assert.True(t, in.WantMounted && in.MountChangeRequested)
	assert.True(t, in.WantRecording && in.RecordingChangeRequested)
}

func TestDebounceAcrossTickWrap(t *testing.T) {
	a := NewAggregator(200, mounted(true))
	start := clock.Ticks(0xFFFFFFF0)
	assert.True(t, a.Accept(Edge{Source: MountButton, At: start}))
	assert.False(t, a.Accept(Edge{Source: MountButton, At: start.Add(100)}))
	assert.True(t, a.Accept(Edge{Source: MountButton, At: start.Add(300)}))
}

func TestRecordDroppedWhileUnmounted(t *testing.T) {
	a := NewAggregator(200, mounted(false))
	for i := 0; i < 5; i++ {
		assert.False(t, a.Accept(Edge{Source: RecordButton, At: clock.Ticks(i * 1000)}))
	}
	in := a.Intents()
	assert.False(t, in.WantRecording)
	assert.False(t, in.RecordingChangeRequested)
}

func TestTakeClearsExactlyOnce(t *testing.T) {
	a := NewAggregator(200, mounted(true))
	a.Accept(Edge{Source: MountButton, At: 0})

	want, ok := a.TakeMountChange()
	assert.True(t, ok)
	assert.True(t, want)

	_, ok = a.TakeMountChange()
	assert.False(t, ok)

	a.Accept(Edge{Source: RecordButton, At: 0})
	want, ok = a.TakeRecordingChange()
	assert.True(t, ok && want)
	_, ok = a.TakeRecordingChange()
	assert.False(t, ok)
}

func TestSetWantDoesNotRequestChange(t *testing.T) {
	a := NewAggregator(200, mounted(true))
	a.SetWantMounted(true)
	a.SetWantRecording(true)

	_, ok := a.TakeMountChange()
	assert.False(t, ok)

	// The next press toggles from the synced value.
	a.Accept(Edge{Source: MountButton, At: 0})
	want, ok := a.TakeMountChange()
	assert.True(t, ok)
	assert.False(t, want)
}

func TestBootRequestFiresOnce(t *testing.T) {
	a := NewAggregator(200, mounted(false))
	assert.False(t, a.TakeBootRequest())

	assert.True(t, a.Accept(Edge{Source: BootRequest, At: 0}))
	assert.False(t, a.Accept(Edge{Source: BootRequest, At: 5000}))
	assert.True(t, a.TakeBootRequest())
	assert.False(t, a.TakeBootRequest())

	assert.False(t, a.Accept(Edge{Source: BootRequest, At: 9000}))
	assert.False(t, a.TakeBootRequest())
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Push(Edge{Source: MountButton}))
	assert.True(t, q.Push(Edge{Source: RecordButton}))
	assert.False(t, q.Push(Edge{Source: BootRequest}))
	assert.Equal(t, uint32(1), q.Drops())

	e, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, MountButton, e.Source)
}

func TestDrainAppliesInOrder(t *testing.T) {
	q := NewQueue(8)
	q.Push(Edge{Source: MountButton, At: 0})
	q.Push(Edge{Source: MountButton, At: 50})
	q.Push(Edge{Source: MountButton, At: 400})

	a := NewAggregator(200, mounted(true))
	assert.Equal(t, 2, a.Drain(q))
	assert.False(t, a.Intents().WantMounted)

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestWatcherCapturesEdges(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO5", Num: 5, EdgesChan: make(chan gpio.Level, 1)}
	q := NewQueue(4)
	clk := clock.NewManual(1234)
	w := NewWatcher(q, clk)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Watch(ctx, pin, RecordButton))
	assert.Equal(t, gpio.PullUp, pin.Pull())

	pin.EdgesChan <- gpio.Low

	var e Edge
	require.Eventually(t, func() bool {
		var ok bool
		e, ok = q.Pop()
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, RecordButton, e.Source)
	assert.Equal(t, clock.Ticks(1234), e.At)

	cancel()
	w.Wait()
}

func TestWatchByNameEmptyDisables(t *testing.T) {
	w := NewWatcher(NewQueue(1), clock.NewManual(0))
	require.NoError(t, w.WatchByName(context.Background(), "", MountButton))
	w.Wait()
}
