package viewstate

import (
	"sync"
	"testing"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotSink struct {
	mu     sync.Mutex
	states []neural.State
}

func (s *snapshotSink) Name() string { return "snapshotsink" }

func (s *snapshotSink) SnapshotUpdated(state neural.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *snapshotSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *snapshotSink) last() neural.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[len(s.states)-1]
}

func setup(t *testing.T) (*Arbiter, *snapshotSink) {
	components := component.NewManager()
	sink := &snapshotSink{}
	require.NoError(t, components.Add(sink))
	return NewArbiter(components), sink
}

func stateWithPrediction(p int) neural.State {
	state := neural.EmptyState()
	state.Prediction = p
	return state
}

func TestLiveByDefault(t *testing.T) {
	a, sink := setup(t)
	assert.True(t, a.Live())

	a.PublishLive(stateWithPrediction(3))
	require.Equal(t, 1, sink.count())
	assert.Equal(t, 3, sink.last().Prediction)
	assert.Equal(t, 3, a.Current().Prediction)
}

func TestReplayTakesOver(t *testing.T) {
	a, sink := setup(t)

	a.PublishReplay(stateWithPrediction(7))
	assert.False(t, a.Live())
	assert.Equal(t, 7, a.Current().Prediction)
	require.Equal(t, 1, sink.count())

	// live snapshots are recorded but not forwarded while replaying
	a.PublishLive(stateWithPrediction(4))
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 7, a.Current().Prediction)
}

func TestJumpToLive(t *testing.T) {
	a, sink := setup(t)

	a.PublishLive(stateWithPrediction(4))
	a.PublishReplay(stateWithPrediction(7))
	a.JumpToLive()

	assert.True(t, a.Live())
	// the latest background live snapshot is republished on the switch
	require.Equal(t, 3, sink.count())
	assert.Equal(t, 4, sink.last().Prediction)

	// jumping while already live does not republish
	a.JumpToLive()
	assert.Equal(t, 3, sink.count())
}

func TestFreshRunResetsToLive(t *testing.T) {
	a, _ := setup(t)

	a.PublishReplay(stateWithPrediction(7))
	require.False(t, a.Live())

	a.TrainingStarted()
	assert.True(t, a.Live())
}

func TestRunningDoesNotExitReplay(t *testing.T) {
	a, _ := setup(t)

	// entering replay mid-run: the stream keeps flowing, the view stays put
	a.PublishReplay(stateWithPrediction(7))
	a.PublishLive(stateWithPrediction(1))
	a.PublishLive(stateWithPrediction(2))
	assert.False(t, a.Live())
	assert.Equal(t, 7, a.Current().Prediction)
}
