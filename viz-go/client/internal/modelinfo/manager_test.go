package modelinfo

import (
	"testing"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/config"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/mockserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ComponentInterfaces(t *testing.T) {
	m := NewManager()
	component.TestImplements(t, m, component.Implements{
		Initializer:    true,
		NetworkEventer: true,
		Handlers:       true,
	})
}

func setup(t *testing.T) (*mockserver.Backend, *Manager) {
	backend := mockserver.NewBackend()
	t.Cleanup(backend.Close)

	m := NewManager()
	m.Initialize(component.InitializerOptions{
		Configuration: config.Configuration{BackendURL: backend.URL.String()},
	})
	return backend, m
}

func annInfo() map[string]interface{} {
	return map[string]interface{}{
		"model_type": "ann",
		"parameters": 101770,
		"layers": []map[string]interface{}{
			{"name": "hidden1", "type": "dense", "units": 128},
			{"name": "hidden2", "type": "dense", "units": 64},
			{"name": "output", "type": "dense", "units": 10},
		},
	}
}

func Test_InfoCached(t *testing.T) {
	backend, m := setup(t)
	backend.SetResponse("/model/info", annInfo())

	info, err := m.info("ann")
	require.NoError(t, err)
	assert.Equal(t, "ann", info.ModelType)
	assert.Equal(t, 101770, info.Parameters)
	require.Len(t, info.Layers, 3)
	assert.Equal(t, 128, info.Layers[0].Units)

	// second lookup answers from cache
	_, err = m.info("ann")
	require.NoError(t, err)
	assert.Equal(t, int64(1), backend.RequestCount("/model/info"))
}

func Test_CachePurgedOnReconnect(t *testing.T) {
	backend, m := setup(t)
	backend.SetResponse("/model/info", annInfo())

	_, err := m.info("ann")
	require.NoError(t, err)

	m.NetworkOnline()
	_, err = m.info("ann")
	require.NoError(t, err)
	assert.Equal(t, int64(2), backend.RequestCount("/model/info"))
}

func Test_InfoBackendError(t *testing.T) {
	_, m := setup(t)
	// no canned response, the backend answers 404

	_, err := m.info("cnn")
	require.Error(t, err)

	// errors are not cached
	_, err = m.info("cnn")
	require.Error(t, err)
}

func Test_Models(t *testing.T) {
	_, m := setup(t)

	models, err := m.models()
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "cnn", "rnn"}, models.Available)
	assert.Equal(t, "ann", models.Active)
}

func Test_SwitchModel(t *testing.T) {
	_, m := setup(t)

	models, err := m.switchModel("cnn")
	require.NoError(t, err)
	assert.Equal(t, "cnn", models.Active)

	// the manager tracks the new active model
	models, err = m.models()
	require.NoError(t, err)
	assert.Equal(t, "cnn", models.Active)
}

func Test_MalformedInfo(t *testing.T) {
	backend, m := setup(t)
	backend.SetRawResponse("/model/info", `["not", "an", "object"]`)

	_, err := m.info("ann")
	require.Error(t, err)
}
