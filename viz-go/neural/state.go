package neural

// InputSize is the number of pixels in a canvas input (28x28 grayscale).
const InputSize = 28 * 28

// NumClasses is the number of digit classes the backend predicts over.
const NumClasses = 10

// NoPrediction is the sentinel prediction value used before the backend has
// classified anything.
const NoPrediction = -1

// Edge is a weighted connection between two units. From and To are indices
// into the source/target layer's activation slice, not screen positions.
// Strength is signed: magnitude drives visual weight, sign drives color.
type Edge struct {
	From     int     `json:"from"`
	To       int     `json:"to"`
	Strength float64 `json:"strength"`
}

// State is one consistent, renderable snapshot of the network at an instant.
// Every field has a safe zero value: consumers must treat absence as "no
// signal", never as an error.
type State struct {
	// Input holds the raw pixel intensities, each in [0,1]. Empty during
	// training, InputSize entries when derived from a drawn digit.
	Input []float64 `json:"input"`

	// Layers maps layer name to that layer's post-activation outputs.
	Layers map[string][]float64 `json:"layers"`

	// Prediction is the predicted class index, or NoPrediction.
	Prediction int `json:"prediction"`

	// Confidence is in [0,1] and only meaningful when Prediction is valid.
	Confidence float64 `json:"confidence"`

	// Probabilities holds one entry per class, summing to roughly 1.
	Probabilities []float64 `json:"probabilities"`

	// Edges maps a layer-pair name (e.g. "hidden1_hidden2") to the top-K
	// most significant connections between the two layers.
	Edges map[string][]Edge `json:"edges"`
}

// EmptyState returns the safe fallback snapshot used while the socket is not
// ready, the model is still loading, or a payload failed to decode.
func EmptyState() State {
	return State{
		Input:         make([]float64, InputSize),
		Layers:        map[string][]float64{},
		Prediction:    NoPrediction,
		Confidence:    0,
		Probabilities: []float64{},
		Edges:         map[string][]Edge{},
	}
}

// Matrix is a dense rectangular weight or gradient matrix: one row per
// source unit, one column per target unit. Rows are never assumed to match
// the live activation lengths; consumers zip defensively.
type Matrix [][]float64

// Rows returns the number of source units.
func (m Matrix) Rows() int {
	return len(m)
}

// At returns m[i][j], or 0 if either index is out of range. Ragged rows are
// tolerated.
func (m Matrix) At(i, j int) float64 {
	if i < 0 || i >= len(m) {
		return 0
	}
	row := m[i]
	if j < 0 || j >= len(row) {
		return 0
	}
	return row[j]
}

// ClampUnit clamps v into [0,1]. This is a render-adjacent convenience for
// color ramps; canonical snapshot values keep their raw sign and magnitude.
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
