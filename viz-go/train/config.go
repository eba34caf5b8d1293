package train

// Config is the training configuration sent with a configure command.
// Zero values are filled in by the backend's own defaults.
type Config struct {
	ModelType         string  `json:"model_type,omitempty"`
	LearningRate      float64 `json:"learning_rate,omitempty"`
	BatchSize         int     `json:"batch_size,omitempty"`
	Epochs            int     `json:"epochs,omitempty"`
	Optimizer         string  `json:"optimizer,omitempty"`
	Activation        string  `json:"activation,omitempty"`
	DropoutRate       float64 `json:"dropout_rate,omitempty"`
	KernelInitializer string  `json:"kernel_initializer,omitempty"`
	WeightDecay       float64 `json:"weight_decay,omitempty"`
	LSTMUnits         int     `json:"lstm_units,omitempty"`
	Bidirectional     bool    `json:"bidirectional,omitempty"`
	Conv1Filters      int     `json:"conv1_filters,omitempty"`
	Conv2Filters      int     `json:"conv2_filters,omitempty"`
}
