package neural

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_Caps(t *testing.T) {
	// every weight produces a strong signal
	weights := make(Matrix, 20)
	activations := make([]float64, 20)
	for i := range weights {
		weights[i] = make([]float64, 20)
		activations[i] = 1
		for j := range weights[i] {
			weights[i][j] = 0.5 + float64(j)*0.01
		}
	}

	edges := Project(weights, activations, ProjectOptions{PerSourceCap: 3, GlobalCap: 25})
	assert.LessOrEqual(t, len(edges), 25)

	perSource := map[int]int{}
	for _, e := range edges {
		perSource[e.From]++
	}
	for from, n := range perSource {
		assert.LessOrEqual(t, n, 3, "source %d", from)
	}
}

func TestProject_Deterministic(t *testing.T) {
	weights := Matrix{
		{0.5, -0.5, 0.25},
		{0.5, 0.5, -0.5},
		{-0.25, 0.1, 0.9},
	}
	activations := []float64{1, 0.8, -0.6}
	opts := ProjectOptions{PerSourceCap: 2, GlobalCap: 4}

	first := Project(weights, activations, opts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Project(weights, activations, opts))
	}
}

func TestProject_StrengthIsWeightTimesActivation(t *testing.T) {
	weights := Matrix{{0.5}}
	edges := Project(weights, []float64{-0.8}, ProjectOptions{})
	require.Len(t, edges, 1)
	assert.InDelta(t, -0.4, edges[0].Strength, 1e-12)
}

func TestProject_SkipsQuietSources(t *testing.T) {
	weights := Matrix{
		{10, 10},
		{10, 10},
	}
	edges := Project(weights, []float64{0, 1}, ProjectOptions{})
	for _, e := range edges {
		assert.Equal(t, 1, e.From)
	}
	assert.Len(t, edges, 2)
}

func TestProject_NoiseFloor(t *testing.T) {
	weights := Matrix{{0.019, 0.021}}
	edges := Project(weights, []float64{1}, ProjectOptions{SignalThreshold: 0.02})
	require.Len(t, edges, 1)
	assert.Equal(t, 1, edges[0].To)
}

func TestProject_MismatchedShapes(t *testing.T) {
	// more rows than activations, ragged columns, TargetCount below row width
	weights := Matrix{
		{1, 1, 1, 1},
		{1},
		{1, 1},
		{1, 1},
	}
	activations := []float64{1, 1, 1}

	edges := Project(weights, activations, ProjectOptions{TargetCount: 2})
	for _, e := range edges {
		assert.Less(t, e.From, 3)
		assert.Less(t, e.To, 2)
	}
	require.NotEmpty(t, edges)
}

func TestProject_EmptyInputs(t *testing.T) {
	assert.Empty(t, Project(nil, nil, ProjectOptions{}))
	assert.Empty(t, Project(Matrix{{1}}, nil, ProjectOptions{}))
	assert.Empty(t, Project(nil, []float64{1}, ProjectOptions{}))
}

func TestProjectAll(t *testing.T) {
	weights := map[string]Matrix{
		"hidden1_hidden2": {{0.9, 0.1}},
		"hidden2_output":  {{0.9, 0.9}, {0.9, 0.9}},
		"orphan_pair":     {{0.9}},
	}
	layers := map[string][]float64{
		"hidden1": {1},
		"hidden2": {1, 1},
		"output":  {1},
	}

	edges := ProjectAll(weights, layers, ProjectOptions{})
	assert.NotEmpty(t, edges["hidden1_hidden2"])
	assert.Len(t, edges["hidden2_output"], 2)
	assert.NotContains(t, edges, "orphan_pair")

	// columns beyond the target layer's length are ignored
	for _, e := range edges["hidden2_output"] {
		assert.Equal(t, 0, e.To)
	}
}

func TestProject_RankedByMagnitude(t *testing.T) {
	weights := Matrix{{0.1, -0.9, 0.5}}
	edges := Project(weights, []float64{1}, ProjectOptions{})
	require.Len(t, edges, 3)
	for i := 1; i < len(edges); i++ {
		assert.GreaterOrEqual(t,
			math.Abs(edges[i-1].Strength), math.Abs(edges[i].Strength))
	}
}
