package network

import (
	"context"
	"testing"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/config"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/mockserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ComponentInterfaces(t *testing.T) {
	m := NewManager(component.NewManager())
	component.TestImplements(t, m, component.Implements{
		Handlers:    true,
		Terminater:  true,
		Initializer: true,
	})
}

type flagEventer struct {
	Test bool
}

func (d *flagEventer) NetworkOnline() {
	d.Test = true
}

func (d *flagEventer) NetworkOffline() {
	d.Test = false
}

func (d *flagEventer) Name() string {
	return "flageventer"
}

func setup(t *testing.T) (*mockserver.Backend, *Manager, *flagEventer) {
	backend := mockserver.NewBackend()
	t.Cleanup(backend.Close)

	components := component.NewManager()
	eventer := &flagEventer{Test: true}
	require.NoError(t, components.Add(eventer))

	m := NewManager(components)
	m.Initialize(component.InitializerOptions{
		Configuration: config.Configuration{
			BackendURL:     backend.URL.String(),
			HealthInterval: time.Hour,
		},
	})
	t.Cleanup(m.Terminate)
	return backend, m, eventer
}

func Test_DoHealthCheck(t *testing.T) {
	backend, m, eventer := setup(t)

	backend.SetHealthy(false)
	m.doHealthCheck(context.Background())
	assert.False(t, m.Online())
	assert.False(t, eventer.Test)

	backend.SetHealthy(true)
	m.doHealthCheck(context.Background())
	assert.True(t, m.Online())
	assert.True(t, eventer.Test)
}

func Test_RetryCounter(t *testing.T) {
	backend, m, _ := setup(t)

	backend.SetHealthy(false)
	m.doHealthCheck(context.Background())
	m.doHealthCheck(context.Background())
	m.doHealthCheck(context.Background())
	assert.Equal(t, 3, m.Retries())

	// a successful check resets the streak
	backend.SetHealthy(true)
	m.doHealthCheck(context.Background())
	assert.Equal(t, 0, m.Retries())
}

func Test_ErrorIntervalFasterThanHealthy(t *testing.T) {
	backend, m, _ := setup(t)

	backend.SetHealthy(false)
	errTick := m.doHealthCheck(context.Background())
	backend.SetHealthy(true)
	okTick := m.doHealthCheck(context.Background())
	assert.True(t, errTick < okTick)
}

func Test_CheckNow(t *testing.T) {
	backend, m, _ := setup(t)

	backend.SetHealthy(false)
	assert.False(t, m.CheckNow(context.Background()))
	backend.SetHealthy(true)
	assert.True(t, m.CheckNow(context.Background()))
}

func Test_ForceOffline(t *testing.T) {
	backend, m, _ := setup(t)
	backend.SetHealthy(true)

	m.SetOffline(true)
	m.doHealthCheck(context.Background())
	assert.False(t, m.Online())
	assert.Equal(t, int64(0), backend.RequestCount("/health"))

	m.SetOffline(false)
	m.doHealthCheck(context.Background())
	assert.True(t, m.Online())
}

func Test_UnreachableBackend(t *testing.T) {
	backend, m, _ := setup(t)
	backend.Server.Close()

	m.doHealthCheck(context.Background())
	assert.False(t, m.Online())
	assert.Equal(t, 1, m.Retries())
}
