package component

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Implements contains boolean flags for interfaces we expect to be
// implemented in a component. It is used by TestImplements in tests to
// ensure we don't accidentally remove or add implementations.
type Implements struct {
	Initializer     bool
	Terminater      bool
	NetworkEventer  bool
	TrainingEventer bool
	SnapshotEventer bool
	Handlers        bool
	Ticker          bool
}

// TestImplements tests whether the provided object implements all expected interfaces.
func TestImplements(t *testing.T, obj interface{}, expected Implements) {
	c, ok := obj.(Core)
	require.True(t, ok, "expected component to implement component.Core")

	_, ok = obj.(Initializer)
	require.Equalf(t, expected.Initializer, ok, "unexpected implementation mismatch for component.Initializer in %s", c.Name())

	_, ok = obj.(Terminater)
	require.Equalf(t, expected.Terminater, ok, "unexpected implementation mismatch for component.Terminater in %s", c.Name())

	_, ok = obj.(NetworkEventer)
	require.Equalf(t, expected.NetworkEventer, ok, "unexpected implementation mismatch for component.NetworkEventer in %s", c.Name())

	_, ok = obj.(TrainingEventer)
	require.Equalf(t, expected.TrainingEventer, ok, "unexpected implementation mismatch for component.TrainingEventer in %s", c.Name())

	_, ok = obj.(SnapshotEventer)
	require.Equalf(t, expected.SnapshotEventer, ok, "unexpected implementation mismatch for component.SnapshotEventer in %s", c.Name())

	_, ok = obj.(Handlers)
	require.Equalf(t, expected.Handlers, ok, "unexpected implementation mismatch for component.Handlers in %s", c.Name())

	_, ok = obj.(Ticker)
	require.Equalf(t, expected.Ticker, ok, "unexpected implementation mismatch for component.Ticker in %s", c.Name())
}
