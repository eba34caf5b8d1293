package trainmetrics

import (
	"sync"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/RayAKaan/NN-Visualizer/viz-go/train"
)

// DefaultCap bounds each retained series during long-running sessions.
const DefaultCap = 1000

// Series is an immutable copy of the accumulated training metrics,
// suitable for handing to chart consumers.
type Series struct {
	Losses        []float64 `json:"losses"`
	Accuracies    []float64 `json:"accuracies"`
	GradientNorms []float64 `json:"gradientNorms"`
	LearningRates []float64 `json:"learningRates"`
	ValLosses     []float64 `json:"valLosses"`
	ValAccuracies []float64 `json:"valAccuracies"`

	// EpochBoundaries holds, for each completed epoch, the length of the
	// batch-level loss series at the moment the epoch ended. Stored as an
	// index rather than an epoch counter so per-epoch overlays stay in
	// register with the batch series even when batch counts vary.
	EpochBoundaries []int `json:"epochBoundaries"`

	PrecisionHistory  [][]float64     `json:"precisionHistory"`
	RecallHistory     [][]float64     `json:"recallHistory"`
	F1History         [][]float64     `json:"f1History"`
	ConfusionMatrices []neural.Matrix `json:"confusionMatrices"`
}

// Accumulator folds streamed batch and epoch updates into bounded,
// append-only series. The streaming client is the only writer; readers get
// copies via Series().
type Accumulator struct {
	mu  sync.Mutex
	cap int

	losses        []float64
	accuracies    []float64
	gradientNorms []float64
	learningRates []float64
	valLosses     []float64
	valAccuracies []float64

	epochBoundaries []int

	precisionHistory  [][]float64
	recallHistory     [][]float64
	f1History         [][]float64
	confusionMatrices []neural.Matrix
}

// NewAccumulator returns an accumulator retaining at most size entries per
// series, or DefaultCap if size is not positive.
func NewAccumulator(size int) *Accumulator {
	if size <= 0 {
		size = DefaultCap
	}
	return &Accumulator{cap: size}
}

// RecordBatch appends one batch update to the batch-level series.
func (a *Accumulator) RecordBatch(update train.BatchUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.losses = append(a.losses, update.Loss)
	a.accuracies = append(a.accuracies, update.Accuracy)
	a.gradientNorms = append(a.gradientNorms, update.GradientNorm)
	a.learningRates = append(a.learningRates, update.LearningRate)
	a.evictLocked()
}

// RecordEpoch appends one epoch update to the epoch-level series and records
// the epoch boundary marker against the batch-level loss series.
func (a *Accumulator) RecordEpoch(update train.EpochUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.epochBoundaries = append(a.epochBoundaries, len(a.losses))
	a.valLosses = append(a.valLosses, update.ValLoss)
	a.valAccuracies = append(a.valAccuracies, update.ValAccuracy)

	if len(update.PrecisionPerClass) > 0 {
		a.precisionHistory = append(a.precisionHistory, update.PrecisionPerClass)
	}
	if len(update.RecallPerClass) > 0 {
		a.recallHistory = append(a.recallHistory, update.RecallPerClass)
	}
	if len(update.F1PerClass) > 0 {
		a.f1History = append(a.f1History, update.F1PerClass)
	}
	if update.ConfusionMatrix.Rows() > 0 {
		a.confusionMatrices = append(a.confusionMatrices, update.ConfusionMatrix)
	}
	a.evictLocked()
}

// Reset drops all accumulated series, e.g. when a new run is configured.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.losses = nil
	a.accuracies = nil
	a.gradientNorms = nil
	a.learningRates = nil
	a.valLosses = nil
	a.valAccuracies = nil
	a.epochBoundaries = nil
	a.precisionHistory = nil
	a.recallHistory = nil
	a.f1History = nil
	a.confusionMatrices = nil
}

// Len returns the current length of the batch-level loss series.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.losses)
}

// Series returns a copy of all accumulated series.
func (a *Accumulator) Series() Series {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Series{
		Losses:            copyFloats(a.losses),
		Accuracies:        copyFloats(a.accuracies),
		GradientNorms:     copyFloats(a.gradientNorms),
		LearningRates:     copyFloats(a.learningRates),
		ValLosses:         copyFloats(a.valLosses),
		ValAccuracies:     copyFloats(a.valAccuracies),
		EpochBoundaries:   copyInts(a.epochBoundaries),
		PrecisionHistory:  copyFloatRows(a.precisionHistory),
		RecallHistory:     copyFloatRows(a.recallHistory),
		F1History:         copyFloatRows(a.f1History),
		ConfusionMatrices: copyMatrices(a.confusionMatrices),
	}
}

// evictLocked trims every series to the cap, dropping the oldest entries.
// Epoch boundary markers index into the loss series, so they shift down by
// the number of evicted batch entries and fall off once they pass zero.
func (a *Accumulator) evictLocked() {
	if overflow := len(a.losses) - a.cap; overflow > 0 {
		a.losses = a.losses[overflow:]
		a.accuracies = trimFloats(a.accuracies, overflow)
		a.gradientNorms = trimFloats(a.gradientNorms, overflow)
		a.learningRates = trimFloats(a.learningRates, overflow)

		kept := a.epochBoundaries[:0]
		for _, boundary := range a.epochBoundaries {
			if boundary-overflow >= 0 {
				kept = append(kept, boundary-overflow)
			}
		}
		a.epochBoundaries = kept
	}

	if overflow := len(a.valLosses) - a.cap; overflow > 0 {
		a.valLosses = a.valLosses[overflow:]
		a.valAccuracies = trimFloats(a.valAccuracies, overflow)
	}
	if overflow := len(a.precisionHistory) - a.cap; overflow > 0 {
		a.precisionHistory = a.precisionHistory[overflow:]
	}
	if overflow := len(a.recallHistory) - a.cap; overflow > 0 {
		a.recallHistory = a.recallHistory[overflow:]
	}
	if overflow := len(a.f1History) - a.cap; overflow > 0 {
		a.f1History = a.f1History[overflow:]
	}
	if overflow := len(a.confusionMatrices) - a.cap; overflow > 0 {
		a.confusionMatrices = a.confusionMatrices[overflow:]
	}
}

func trimFloats(s []float64, overflow int) []float64 {
	if overflow >= len(s) {
		return nil
	}
	return s[overflow:]
}

func copyFloats(s []float64) []float64 {
	return append([]float64(nil), s...)
}

func copyInts(s []int) []int {
	return append([]int(nil), s...)
}

func copyFloatRows(s [][]float64) [][]float64 {
	out := make([][]float64, len(s))
	for i, row := range s {
		out[i] = copyFloats(row)
	}
	return out
}

func copyMatrices(s []neural.Matrix) []neural.Matrix {
	out := make([]neural.Matrix, len(s))
	for i, m := range s {
		out[i] = neural.Matrix(copyFloatRows(m))
	}
	return out
}
