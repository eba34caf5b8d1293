package trainmetrics

import (
	"testing"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/RayAKaan/NN-Visualizer/viz-go/train"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_SeriesBound(t *testing.T) {
	a := NewAccumulator(10)
	for i := 0; i < 35; i++ {
		a.RecordBatch(train.BatchUpdate{Loss: float64(i), Accuracy: float64(i) / 100})
	}

	series := a.Series()
	require.Len(t, series.Losses, 10)
	require.Len(t, series.Accuracies, 10)
	// most recent entries survive FIFO eviction
	assert.Equal(t, 25.0, series.Losses[0])
	assert.Equal(t, 34.0, series.Losses[9])
}

func TestAccumulator_EpochBoundaryAlignment(t *testing.T) {
	a := NewAccumulator(DefaultCap)
	for i := 0; i < 37; i++ {
		a.RecordBatch(train.BatchUpdate{Loss: 0.5})
	}
	a.RecordEpoch(train.EpochUpdate{Epoch: 1, ValLoss: 0.4})

	series := a.Series()
	require.Len(t, series.EpochBoundaries, 1)
	// the marker is the loss series length, not the epoch number
	assert.Equal(t, 37, series.EpochBoundaries[0])
}

func TestAccumulator_BoundariesShiftOnEviction(t *testing.T) {
	a := NewAccumulator(10)
	for i := 0; i < 5; i++ {
		a.RecordBatch(train.BatchUpdate{})
	}
	a.RecordEpoch(train.EpochUpdate{Epoch: 1}) // boundary at 5
	for i := 0; i < 10; i++ {
		a.RecordBatch(train.BatchUpdate{})
	}
	a.RecordEpoch(train.EpochUpdate{Epoch: 2}) // boundary at 15, evicted to 10

	series := a.Series()
	require.Len(t, series.Losses, 10)
	// 15 batches seen, 5 evicted: the first boundary (5-5=0) survives at 0,
	// the second lands at 10
	assert.Equal(t, []int{0, 10}, series.EpochBoundaries)
}

func TestAccumulator_PerClassMetrics(t *testing.T) {
	a := NewAccumulator(DefaultCap)
	a.RecordEpoch(train.EpochUpdate{
		PrecisionPerClass: []float64{0.9, 0.8},
		RecallPerClass:    []float64{0.7, 0.6},
		F1PerClass:        []float64{0.79, 0.68},
		ConfusionMatrix:   neural.Matrix{{5, 1}, {2, 4}},
	})
	a.RecordEpoch(train.EpochUpdate{}) // per-class fields absent

	series := a.Series()
	require.Len(t, series.PrecisionHistory, 1)
	require.Len(t, series.ConfusionMatrices, 1)
	assert.Equal(t, []float64{0.9, 0.8}, series.PrecisionHistory[0])
	assert.Len(t, series.ValLosses, 2)
}

func TestAccumulator_Reset(t *testing.T) {
	a := NewAccumulator(DefaultCap)
	a.RecordBatch(train.BatchUpdate{Loss: 1})
	a.RecordEpoch(train.EpochUpdate{})
	a.Reset()

	series := a.Series()
	assert.Empty(t, series.Losses)
	assert.Empty(t, series.ValLosses)
	assert.Empty(t, series.EpochBoundaries)
	assert.Equal(t, 0, a.Len())
}

func TestAccumulator_SeriesIsACopy(t *testing.T) {
	a := NewAccumulator(DefaultCap)
	a.RecordBatch(train.BatchUpdate{Loss: 1})

	series := a.Series()
	series.Losses[0] = 99
	assert.Equal(t, 1.0, a.Series().Losses[0])
}
