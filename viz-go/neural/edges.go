package neural

import (
	"math"
	"sort"
)

// Defaults for ProjectOptions. The signal threshold matches the visual noise
// floor below which a connection is invisible at typical edge opacities.
const (
	DefaultActivationEpsilon = 1e-6
	DefaultSignalThreshold   = 0.02
	DefaultPerSourceCap      = 8
	DefaultGlobalCap         = 256
)

// ProjectOptions bounds the output of Project.
type ProjectOptions struct {
	// ActivationEpsilon skips source units whose activation magnitude is
	// below it: they propagate no signal.
	ActivationEpsilon float64
	// SignalThreshold drops individual edges whose |weight*activation| is
	// below it.
	SignalThreshold float64
	// PerSourceCap limits edges per source unit, so one hyperactive unit
	// cannot dominate the render.
	PerSourceCap int
	// GlobalCap limits the total edge count regardless of layer size.
	GlobalCap int
	// TargetCount, when positive, limits target indices to the target
	// layer's current length, ignoring extra matrix columns.
	TargetCount int
}

func (o ProjectOptions) withDefaults() ProjectOptions {
	if o.ActivationEpsilon <= 0 {
		o.ActivationEpsilon = DefaultActivationEpsilon
	}
	if o.SignalThreshold <= 0 {
		o.SignalThreshold = DefaultSignalThreshold
	}
	if o.PerSourceCap <= 0 {
		o.PerSourceCap = DefaultPerSourceCap
	}
	if o.GlobalCap <= 0 {
		o.GlobalCap = DefaultGlobalCap
	}
	return o
}

// Project reduces a dense weight (or gradient) matrix to a sparse, ranked
// edge list for rendering at bounded cost. Each candidate edge carries
// strength weight[i][j] * activations[i], a first-order sensitivity.
// Candidates are ranked per source unit first (top PerSourceCap), then
// globally (top GlobalCap); the two-stage cap keeps a few edges per active
// unit where a naive global top-N would starve small-activation units.
//
// Row and column counts need not match the live activation lengths: only
// the overlapping index range is read, so mismatched matrices cannot index
// out of bounds. The result is deterministic, ties resolve to input order.
func Project(weights Matrix, activations []float64, opts ProjectOptions) []Edge {
	opts = opts.withDefaults()

	sources := len(weights)
	if len(activations) < sources {
		sources = len(activations)
	}

	edges := make([]Edge, 0, sources*opts.PerSourceCap)
	perSource := make([]Edge, 0, 64)
	for i := 0; i < sources; i++ {
		activation := activations[i]
		if math.Abs(activation) < opts.ActivationEpsilon {
			continue
		}

		targets := len(weights[i])
		if opts.TargetCount > 0 && opts.TargetCount < targets {
			targets = opts.TargetCount
		}

		perSource = perSource[:0]
		for j := 0; j < targets; j++ {
			signal := weights[i][j] * activation
			if math.Abs(signal) < opts.SignalThreshold {
				continue
			}
			perSource = append(perSource, Edge{From: i, To: j, Strength: signal})
		}

		sortByMagnitude(perSource)
		if len(perSource) > opts.PerSourceCap {
			perSource = perSource[:opts.PerSourceCap]
		}
		edges = append(edges, perSource...)
	}

	sortByMagnitude(edges)
	if len(edges) > opts.GlobalCap {
		edges = edges[:opts.GlobalCap]
	}
	return edges
}

// sortByMagnitude orders edges by descending |strength|, stably, so that
// equal-magnitude edges keep their input order.
func sortByMagnitude(edges []Edge) {
	sort.SliceStable(edges, func(a, b int) bool {
		return math.Abs(edges[a].Strength) > math.Abs(edges[b].Strength)
	})
}

// ProjectAll projects each named weight matrix against the activations of
// its source layer. Layer-pair names follow the "<source>_<target>"
// convention; matrices whose source layer has no current activations are
// skipped. The target layer's length, when known, bounds the column range.
func ProjectAll(weights map[string]Matrix, layers map[string][]float64, opts ProjectOptions) map[string][]Edge {
	edges := map[string][]Edge{}
	for pair, matrix := range weights {
		source, target, ok := splitLayerPair(pair, layers)
		if !ok {
			continue
		}
		pairOpts := opts
		if pairOpts.TargetCount == 0 && target != nil {
			pairOpts.TargetCount = len(target)
		}
		edges[pair] = Project(matrix, source, pairOpts)
	}
	return edges
}

// splitLayerPair resolves "<source>_<target>" against the known layers,
// trying the longest source prefix first so "hidden1_hidden2" binds to
// "hidden1". The target slice is nil when the target layer is unknown.
func splitLayerPair(pair string, layers map[string][]float64) ([]float64, []float64, bool) {
	for i := len(pair) - 1; i > 0; i-- {
		if pair[i] != '_' {
			continue
		}
		source, ok := layers[pair[:i]]
		if !ok {
			continue
		}
		target := layers[pair[i+1:]]
		return source, target, true
	}
	return nil, nil, false
}
