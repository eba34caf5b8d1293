package train

import (
	"encoding/json"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/RayAKaan/NN-Visualizer/viz-golib/errors"
)

// Inbound message type tags, discriminated by the "type" field.
const (
	TypeBatchUpdate      = "batch_update"
	TypeEpochUpdate      = "epoch_update"
	TypeWeightsUpdate    = "weights_update"
	TypeStatus           = "status"
	TypeTrainingComplete = "training_complete"
	TypeTrainingStopped  = "training_stopped"
	TypeTrainingError    = "training_error"
	TypeError            = "error"
	TypeCommandResponse  = "command_response"
)

// LayerActivation is one layer's activation sample inside a batch update.
// Values may be absent for layers the backend only summarizes.
type LayerActivation struct {
	Type   string
	Shape  string
	Values []float64
	Means  []float64
}

// GradientSummary is the per-parameter gradient digest sent with each batch.
type GradientSummary struct {
	Norm   float64
	Mean   float64
	Std    float64
	MaxAbs float64
	Shape  string
}

// BatchUpdate is one training step.
type BatchUpdate struct {
	Epoch        int
	Batch        int
	TotalBatches int
	TotalEpochs  int
	ModelType    string
	Loss         float64
	Accuracy     float64
	LearningRate float64
	GradientNorm float64
	Activations  map[string]LayerActivation
	Gradients    map[string]GradientSummary
	// Weights is only populated on the batches where the backend chooses to
	// send full matrices; nil otherwise.
	Weights   map[string]neural.Matrix
	Timestamp float64
}

// EpochUpdate is one epoch boundary with validation metrics.
type EpochUpdate struct {
	Epoch             int
	TotalEpochs       int
	ModelType         string
	Loss              float64
	Accuracy          float64
	ValLoss           float64
	ValAccuracy       float64
	PrecisionPerClass []float64
	RecallPerClass    []float64
	F1PerClass        []float64
	ConfusionMatrix   neural.Matrix
	Timestamp         float64
}

// WeightsUpdate replaces the current weight matrices, independent of batch
// cadence.
type WeightsUpdate struct {
	Epoch   int
	Weights map[string]neural.Matrix
}

// StatusMessage is an authoritative server-side status overwrite.
type StatusMessage struct {
	Status Status
}

// Complete announces the end of a training run.
type Complete struct {
	EpochsTrained int
	SnapshotCount int
	FinalAccuracy float64
}

// Stopped announces that the backend stopped the run.
type Stopped struct{}

// Failed carries a fatal training error; recovery requires an explicit
// new configure/start.
type Failed struct {
	Message string
}

// CommandResponse acknowledges a control command.
type CommandResponse struct {
	Command string
	OK      bool
	Message string
}

// Decode parses one inbound frame into its typed message. Unknown tags and
// unparseable frames return an error so the caller can drop the frame with
// a diagnostic; fields inside a known message are decoded tolerantly, with
// malformed values collapsing to zero values.
func Decode(raw []byte) (interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.Wrapf(err, "unparseable training message")
	}

	tag, _ := payload["type"].(string)
	switch tag {
	case TypeBatchUpdate:
		return decodeBatchUpdate(payload), nil
	case TypeEpochUpdate:
		return decodeEpochUpdate(payload), nil
	case TypeWeightsUpdate:
		return WeightsUpdate{
			Epoch:   int(neural.Float(payload["epoch"])),
			Weights: neural.MatricesByName(payload["weights"]),
		}, nil
	case TypeStatus:
		status, _ := payload["status"].(string)
		return StatusMessage{Status: Status(status)}, nil
	case TypeTrainingComplete:
		return Complete{
			EpochsTrained: int(neural.Float(payload["epochs_trained"])),
			SnapshotCount: int(neural.Float(payload["snapshot_count"])),
			FinalAccuracy: neural.Float(payload["final_accuracy"]),
		}, nil
	case TypeTrainingStopped:
		return Stopped{}, nil
	case TypeTrainingError, TypeError:
		msg, _ := payload["message"].(string)
		if msg == "" {
			msg, _ = payload["error"].(string)
		}
		return Failed{Message: msg}, nil
	case TypeCommandResponse:
		command, _ := payload["command"].(string)
		ok, _ := payload["ok"].(bool)
		msg, _ := payload["message"].(string)
		return CommandResponse{Command: command, OK: ok, Message: msg}, nil
	}
	return nil, errors.Errorf("unknown training message type %q", tag)
}

func decodeBatchUpdate(payload map[string]interface{}) BatchUpdate {
	update := BatchUpdate{
		Epoch:        int(neural.Float(payload["epoch"])),
		Batch:        int(neural.Float(payload["batch"])),
		TotalBatches: int(neural.Float(payload["total_batches"])),
		TotalEpochs:  int(neural.Float(payload["total_epochs"])),
		ModelType:    stringField(payload, "model_type"),
		Loss:         neural.Float(payload["loss"]),
		Accuracy:     neural.Float(payload["accuracy"]),
		LearningRate: neural.Float(payload["learning_rate"]),
		GradientNorm: neural.Float(payload["gradient_norm"]),
		Activations:  map[string]LayerActivation{},
		Gradients:    map[string]GradientSummary{},
		Timestamp:    neural.Float(payload["timestamp"]),
	}

	if activations, ok := payload["activations"].(map[string]interface{}); ok {
		for name, rawLayer := range activations {
			fields, ok := rawLayer.(map[string]interface{})
			if !ok {
				continue
			}
			update.Activations[name] = LayerActivation{
				Type:   stringField(fields, "type"),
				Shape:  stringField(fields, "shape"),
				Values: neural.Floats(fields["values"]),
				Means:  neural.Floats(fields["means"]),
			}
		}
	}

	if gradients, ok := payload["gradients"].(map[string]interface{}); ok {
		for name, rawGrad := range gradients {
			fields, ok := rawGrad.(map[string]interface{})
			if !ok {
				continue
			}
			update.Gradients[name] = GradientSummary{
				Norm:   neural.Float(fields["norm"]),
				Mean:   neural.Float(fields["mean"]),
				Std:    neural.Float(fields["std"]),
				MaxAbs: neural.Float(fields["max_abs"]),
				Shape:  stringField(fields, "shape"),
			}
		}
	}

	if weights := neural.MatricesByName(payload["weights"]); len(weights) > 0 {
		update.Weights = weights
	}

	return update
}

func decodeEpochUpdate(payload map[string]interface{}) EpochUpdate {
	return EpochUpdate{
		Epoch:             int(neural.Float(payload["epoch"])),
		TotalEpochs:       int(neural.Float(payload["total_epochs"])),
		ModelType:         stringField(payload, "model_type"),
		Loss:              neural.Float(payload["loss"]),
		Accuracy:          neural.Float(payload["accuracy"]),
		ValLoss:           neural.Float(payload["val_loss"]),
		ValAccuracy:       neural.Float(payload["val_accuracy"]),
		PrecisionPerClass: neural.Floats(payload["precision_per_class"]),
		RecallPerClass:    neural.Floats(payload["recall_per_class"]),
		F1PerClass:        neural.Floats(payload["f1_per_class"]),
		ConfusionMatrix:   neural.FloatMatrix(payload["confusion_matrix"]),
		Timestamp:         neural.Float(payload["timestamp"]),
	}
}

func stringField(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}
