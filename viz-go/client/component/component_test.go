package component

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingComponent struct {
	name string

	initialized int
	terminated  int
	online      int
	offline     int
	started     int
	halted      int
	snapshots   int
	flushes     int

	mu    sync.Mutex
	ticks int
}

func (c *countingComponent) Name() string                  { return c.name }
func (c *countingComponent) Initialize(InitializerOptions) { c.initialized++ }
func (c *countingComponent) Terminate()                    { c.terminated++ }
func (c *countingComponent) NetworkOnline()                { c.online++ }
func (c *countingComponent) NetworkOffline()               { c.offline++ }
func (c *countingComponent) TrainingStarted()              { c.started++ }
func (c *countingComponent) TrainingHalted()               { c.halted++ }
func (c *countingComponent) SnapshotUpdated(neural.State)  { c.snapshots++ }
func (c *countingComponent) TestFlush(context.Context)     { c.flushes++ }

// GoTick runs on its own goroutine, the counter needs a lock
func (c *countingComponent) GoTick(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
}

func (c *countingComponent) tickCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

type panickyComponent struct{}

func (panickyComponent) Name() string                  { return "panicky" }
func (panickyComponent) Initialize(InitializerOptions) { panic("boom") }

func TestManager_Add(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Add(&countingComponent{name: "a"}))
	require.Error(t, m.Add(&countingComponent{name: "a"}), "duplicate names must be rejected")
	require.Error(t, m.Add(&countingComponent{name: ""}), "empty names must be rejected")
	assert.Len(t, m.Components(), 1)
}

func TestManager_EventFanout(t *testing.T) {
	m := NewManager()
	c := &countingComponent{name: "counting"}
	require.NoError(t, m.Add(c))

	m.Initialize(InitializerOptions{})
	m.NetworkOnline()
	m.NetworkOffline()
	m.TrainingStarted()
	m.TrainingHalted()
	m.SnapshotUpdated(neural.EmptyState())
	m.SnapshotUpdated(neural.EmptyState())
	m.Terminate()

	assert.Equal(t, 1, c.initialized)
	assert.Equal(t, 1, c.online)
	assert.Equal(t, 1, c.offline)
	assert.Equal(t, 1, c.started)
	assert.Equal(t, 1, c.halted)
	assert.Equal(t, 2, c.snapshots)
	assert.Equal(t, 1, c.terminated)
}

func TestManager_TickFanout(t *testing.T) {
	m := NewManager()
	c := &countingComponent{name: "counting"}
	require.NoError(t, m.Add(c))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.GoTick(ctx)
	require.Eventually(t, func() bool { return c.tickCount() == 1 }, time.Second, time.Millisecond)

	m.TestFlush(ctx)
	assert.Equal(t, 1, c.flushes)
}

func TestManager_PanicIsolation(t *testing.T) {
	m := NewManager()
	c := &countingComponent{name: "counting"}
	require.NoError(t, m.Add(panickyComponent{}))
	require.NoError(t, m.Add(c))

	// the panicky component must not prevent the others from initializing
	require.NotPanics(t, func() {
		m.Initialize(InitializerOptions{})
	})
	assert.Equal(t, 1, c.initialized)
}

func Test_ImplementedInterfaces(t *testing.T) {
	TestImplements(t, &countingComponent{name: "counting"}, Implements{
		Initializer:     true,
		Terminater:      true,
		NetworkEventer:  true,
		TrainingEventer: true,
		SnapshotEventer: true,
		Ticker:          true,
	})
}
