package neural

import (
	"encoding/json"
	"math"
)

// Normalize decodes a raw backend payload into a State. It is total: for any
// input, including non-JSON garbage, it returns a well-typed State and never
// panics. Absent, mistyped or ragged fields become their documented defaults
// (empty slice / 0 / NoPrediction). Everything downstream of the wire may
// assume its input passed through here.
func Normalize(raw []byte) State {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return EmptyState()
	}
	return NormalizeValue(payload)
}

// NormalizeValue is Normalize for an already-decoded JSON value.
func NormalizeValue(payload map[string]interface{}) State {
	state := EmptyState()
	if payload == nil {
		return state
	}

	if input := Floats(payload["input"]); len(input) > 0 {
		state.Input = input
	}

	state.Layers = floatsByName(payload["layers"])
	// cnn/rnn payloads report their fully-connected tail separately
	for name, values := range floatsByName(payload["dense_layers"]) {
		state.Layers[name] = values
	}

	state.Prediction = classIndex(payload["prediction"])
	state.Confidence = ClampUnit(Float(payload["confidence"]))
	state.Probabilities = Floats(payload["probabilities"])

	if edges, ok := payload["edges"].(map[string]interface{}); ok {
		for name, rawList := range edges {
			state.Edges[name] = normalizeEdges(rawList)
		}
	}

	return state
}

// Float coerces a decoded JSON value to a finite float64, defaulting to 0.
func Float(v interface{}) float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Floats coerces a decoded JSON value to a float slice. Non-list values
// yield an empty slice; non-numeric entries become 0.
func Floats(v interface{}) []float64 {
	list, ok := v.([]interface{})
	if !ok {
		return []float64{}
	}
	out := make([]float64, len(list))
	for i, entry := range list {
		out[i] = Float(entry)
	}
	return out
}

// FloatMatrix coerces a decoded JSON value to a Matrix. Rows that are not
// lists are dropped, so the result may have fewer rows than the wire value;
// it is never nil.
func FloatMatrix(v interface{}) Matrix {
	list, ok := v.([]interface{})
	if !ok {
		return Matrix{}
	}
	out := make(Matrix, 0, len(list))
	for _, rawRow := range list {
		if _, ok := rawRow.([]interface{}); !ok {
			continue
		}
		out = append(out, Floats(rawRow))
	}
	return out
}

// MatricesByName coerces a decoded JSON value to named matrices, e.g. the
// body of GET /weights or a gradients block.
func MatricesByName(v interface{}) map[string]Matrix {
	out := map[string]Matrix{}
	named, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for name, rawMatrix := range named {
		if m := FloatMatrix(rawMatrix); len(m) > 0 {
			out[name] = m
		}
	}
	return out
}

func floatsByName(v interface{}) map[string][]float64 {
	out := map[string][]float64{}
	named, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for name, values := range named {
		if floats := Floats(values); len(floats) > 0 {
			out[name] = floats
		}
	}
	return out
}

func classIndex(v interface{}) int {
	f, ok := v.(float64)
	if !ok {
		return NoPrediction
	}
	idx := int(f)
	if idx < 0 || idx >= NumClasses {
		return NoPrediction
	}
	return idx
}

func normalizeEdges(v interface{}) []Edge {
	list, ok := v.([]interface{})
	if !ok {
		return []Edge{}
	}
	out := make([]Edge, 0, len(list))
	for _, rawEdge := range list {
		fields, ok := rawEdge.(map[string]interface{})
		if !ok {
			continue
		}
		from, to := Float(fields["from"]), Float(fields["to"])
		if from < 0 || to < 0 {
			continue
		}
		out = append(out, Edge{
			From:     int(from),
			To:       int(to),
			Strength: Float(fields["strength"]),
		})
	}
	return out
}
