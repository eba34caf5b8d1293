package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/config"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/mockserver"
	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*mockserver.Backend, *Client, *httptest.Server) {
	backend := mockserver.NewBackend()
	t.Cleanup(backend.Close)

	c, err := NewClient(Options{
		Configuration: config.Configuration{
			BackendURL:      backend.URL.String(),
			LocalPort:       0,
			HealthInterval:  time.Hour,
			PredictDebounce: time.Millisecond,
		},
	})
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	router := mux.NewRouter()
	c.Initialize(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return backend, c, server
}

func Test_AllComponentsRegistered(t *testing.T) {
	_, c, _ := setup(t)

	names := map[string]bool{}
	for _, comp := range c.Components() {
		names[comp.Name()] = true
	}
	for _, expected := range []string{
		"network", "viewstate", "trainstream", "predict",
		"history", "modelinfo", "ws", "export",
	} {
		assert.True(t, names[expected], "missing component %s", expected)
	}
}

func Test_RoutesMounted(t *testing.T) {
	_, _, server := setup(t)

	for _, path := range []string{
		"/clientapi/online",
		"/clientapi/training/status",
		"/clientapi/training/metrics",
		"/clientapi/predict/result",
		"/clientapi/history",
		"/clientapi/replay",
		"/clientapi/state/current",
		"/clientapi/export/metrics.json",
		"/clientapi/sample/3",
		"/clientapi/models",
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func Test_PredictFlushedViaComponentManager(t *testing.T) {
	backend := mockserver.NewBackend()
	t.Cleanup(backend.Close)
	backend.SetResponse("/predict", map[string]interface{}{"prediction": 3})
	backend.SetResponse("/state", map[string]interface{}{"prediction": 3})

	c, err := NewClient(Options{
		Configuration: config.Configuration{
			BackendURL:     backend.URL.String(),
			LocalPort:      0,
			HealthInterval: time.Hour,
			// long on purpose, the flush below must force the cycle
			PredictDebounce: time.Hour,
		},
	})
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	router := mux.NewRouter()
	c.Initialize(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	body, _ := json.Marshal(map[string]interface{}{
		"pixels":     make([]float64, neural.InputSize),
		"model_type": "ann",
	})
	resp, err := http.Post(server.URL+"/clientapi/predict", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	c.TestComponentManager().TestFlush(context.Background())
	assert.False(t, c.Predict.Loading())
	assert.Equal(t, 3, c.Predict.Result().State.Prediction)
}

func Test_StateEndpointDefaultsToLive(t *testing.T) {
	_, _, server := setup(t)

	resp, err := http.Get(server.URL + "/clientapi/state/current")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Live bool `json:"live"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Live)
}
