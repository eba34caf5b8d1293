package train

import (
	"encoding/json"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
)

// HistorySnapshot is one durable, server-retained training snapshot used for
// replay. Snapshots are immutable once fetched.
type HistorySnapshot struct {
	Epoch       int
	Batch       int
	Timestamp   float64
	Loss        float64
	Accuracy    float64
	Activations map[string][]float64
	Gradients   map[string]neural.Matrix
	Weights     map[string]neural.Matrix
}

// State converts the snapshot into a renderable neural state, projecting
// its weight matrices against the recorded activations.
func (s HistorySnapshot) State() neural.State {
	state := neural.EmptyState()
	for name, values := range s.Activations {
		state.Layers[name] = values
	}
	state.Edges = neural.ProjectAll(s.Weights, s.Activations, neural.ProjectOptions{})
	return state
}

// DecodeHistory parses the bulk /training/history payload. Any failure
// yields an empty history rather than an error: replay over nothing is the
// degraded mode.
func DecodeHistory(raw []byte) []HistorySnapshot {
	var entries []interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	history := make([]HistorySnapshot, 0, len(entries))
	for _, entry := range entries {
		payload, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		snapshot := HistorySnapshot{
			Epoch:       int(neural.Float(payload["epoch"])),
			Batch:       int(neural.Float(payload["batch"])),
			Timestamp:   neural.Float(payload["timestamp"]),
			Loss:        neural.Float(payload["loss"]),
			Accuracy:    neural.Float(payload["accuracy"]),
			Activations: map[string][]float64{},
			Gradients:   neural.MatricesByName(payload["gradients"]),
			Weights:     neural.MatricesByName(payload["weights"]),
		}
		if activations, ok := payload["activations"].(map[string]interface{}); ok {
			for name, values := range activations {
				snapshot.Activations[name] = neural.Floats(values)
			}
		}
		history = append(history, snapshot)
	}
	return history
}
