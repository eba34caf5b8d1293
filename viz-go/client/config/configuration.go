package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-golib/envutil"
)

// Configuration contains the environment specific options of the vizd daemon.
type Configuration struct {
	// BackendURL is the base URL of the model-serving backend.
	BackendURL string
	// LocalPort is the port the local clientapi listens on.
	LocalPort int
	// HealthInterval is the cadence of backend health probes.
	HealthInterval time.Duration
	// PredictDebounce is the quiet period before a prediction request fires.
	PredictDebounce time.Duration
}

// GetConfiguration returns the configuration for the current environment.
// Every value has a development default so that a bare `vizd` works against
// a backend on localhost.
func GetConfiguration() Configuration {
	return Configuration{
		BackendURL:      envutil.GetenvDefault("NNVIZ_BACKEND", "http://localhost:8000"),
		LocalPort:       envutil.GetenvDefaultInt("NNVIZ_PORT", 46624),
		HealthInterval:  envutil.GetenvDefaultDuration("NNVIZ_HEALTH_INTERVAL", 5*time.Second),
		PredictDebounce: envutil.GetenvDefaultDuration("NNVIZ_PREDICT_DEBOUNCE", 50*time.Millisecond),
	}
}

// TrainSocketURL derives the ws(s):// URL of the backend's /train endpoint
// from the backend base URL.
func (c Configuration) TrainSocketURL() string {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return "ws://localhost:8000/train"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/train"
	return u.String()
}
