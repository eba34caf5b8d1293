package component

import (
	"context"
	"net/url"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/config"
	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/gorilla/mux"
)

// Core is the base interface used for components, it provides a name
type Core interface {
	Name() string
}

// InitializerOptions provides the values passed to Initialize()
type InitializerOptions struct {
	// VizdURL is the base URL of the local clientapi.
	VizdURL *url.URL
	// Configuration holds the environment configuration.
	Configuration config.Configuration
	// Network reports backend reachability.
	Network NetworkManager
}

// Initializer is called during setup to initialize a component with the
// daemon URL, configuration and network manager
type Initializer interface {
	Initialize(opts InitializerOptions)
}

// Terminater is called on shutdown.
type Terminater interface {
	Terminate()
}

// NetworkEventer provides methods which are called after a change in
// backend reachability
type NetworkEventer interface {
	NetworkOnline()
	NetworkOffline()
}

// NetworkManager reports whether the training backend is reachable
type NetworkManager interface {
	Core
	Online() bool
	CheckNow(ctx context.Context) bool
}

// TrainingEventer provides methods which are called on run lifecycle
// transitions driven by the streaming client
type TrainingEventer interface {
	// TrainingStarted is called when a fresh start command is issued.
	TrainingStarted()
	// TrainingHalted is called when the server reports the run finished,
	// stopped or failed.
	TrainingHalted()
}

// SnapshotEventer provides a method which is called whenever the published
// rendering snapshot changes
type SnapshotEventer interface {
	SnapshotUpdated(state neural.State)
}

// Handlers is implemented by a component which provides http routes
type Handlers interface {
	RegisterHandlers(mux *mux.Router)
}

// Ticker can be used to repeatedly update a component
type Ticker interface {
	// GoTick is called in a goroutine and should exit when the context
	// expires. It may run concurrently with other component methods.
	GoTick(ctx context.Context)
}

// TestFlusher is implemented by a component which supports flush for tests
type TestFlusher interface {
	TestFlush(ctx context.Context)
}
