package component

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/gorilla/mux"
)

// Manager manages a list of components and fans lifecycle and domain events
// out to those which implement the matching interface.
type Manager struct {
	components sync.Map
}

// NewManager returns a new manager with an empty list of components
func NewManager() *Manager {
	return &Manager{}
}

// Add adds a component to the list of managed components.
// If the name was registered before an error is returned
// If the name is empty an error is returned
func (m *Manager) Add(component Core) error {
	name := component.Name()
	if name == "" {
		return fmt.Errorf("component must have Name() return non-empty value")
	}

	if _, ok := m.components.Load(name); ok {
		return fmt.Errorf("component with Name() %s already added", name)
	}

	m.components.LoadOrStore(name, component)
	return nil
}

// Components returns all registered components
func (m *Manager) Components() []Core {
	var result []Core
	m.components.Range(func(key, value interface{}) bool {
		if c, ok := value.(Core); ok {
			result = append(result, c)
		}
		return true
	})

	return result
}

// RegisterHandlers attaches all routes which are provided by components to the router.
func (m *Manager) RegisterHandlers(router *mux.Router) {
	m.each(func(c Core) {
		if handler, ok := c.(Handlers); ok {
			defer m.panicRecovery("RegisterHandlers", c)
			handler.RegisterHandlers(router)
		}
	})
}

// Initialize delegates the call to all components which implement the interface Initializer
func (m *Manager) Initialize(opts InitializerOptions) {
	m.each(func(c Core) {
		if init, ok := c.(Initializer); ok {
			defer m.panicRecovery("Initialize", c)
			init.Initialize(opts)
		}
	})
}

// Terminate delegates the call to all components which implement the interface Terminater
func (m *Manager) Terminate() {
	m.each(func(c Core) {
		if term, ok := c.(Terminater); ok {
			defer m.panicRecovery("Terminate", c)
			term.Terminate()
		}
	})
}

// NetworkOnline delegates the call to all components which implement the interface NetworkEventer
func (m *Manager) NetworkOnline() {
	m.each(func(c Core) {
		if eventer, ok := c.(NetworkEventer); ok {
			defer m.panicRecovery("NetworkOnline", c)
			eventer.NetworkOnline()
		}
	})
}

// NetworkOffline delegates the call to all components which implement the interface NetworkEventer
func (m *Manager) NetworkOffline() {
	m.each(func(c Core) {
		if eventer, ok := c.(NetworkEventer); ok {
			defer m.panicRecovery("NetworkOffline", c)
			eventer.NetworkOffline()
		}
	})
}

// TrainingStarted delegates the call to all components which implement the interface TrainingEventer
func (m *Manager) TrainingStarted() {
	m.each(func(c Core) {
		if eventer, ok := c.(TrainingEventer); ok {
			defer m.panicRecovery("TrainingStarted", c)
			eventer.TrainingStarted()
		}
	})
}

// TrainingHalted delegates the call to all components which implement the interface TrainingEventer
func (m *Manager) TrainingHalted() {
	m.each(func(c Core) {
		if eventer, ok := c.(TrainingEventer); ok {
			defer m.panicRecovery("TrainingHalted", c)
			eventer.TrainingHalted()
		}
	})
}

// SnapshotUpdated delegates the call to all components which implement the interface SnapshotEventer
func (m *Manager) SnapshotUpdated(state neural.State) {
	m.each(func(c Core) {
		if eventer, ok := c.(SnapshotEventer); ok {
			defer m.panicRecovery("SnapshotUpdated", c)
			eventer.SnapshotUpdated(state)
		}
	})
}

// GoTick delegates the call to all components which implement the interface Ticker
func (m *Manager) GoTick(ctx context.Context) {
	m.each(func(c Core) {
		if ticker, ok := c.(Ticker); ok {
			// run in a goroutine to let all components tick in parallel
			// while sharing the same context
			go func() {
				defer m.panicRecovery("GoTick", c)
				ticker.GoTick(ctx)
			}()
		}
	})
}

// TestFlush delegates the call to all components which implement the interface TestFlusher
func (m *Manager) TestFlush(ctx context.Context) {
	m.each(func(c Core) {
		if flusher, ok := c.(TestFlusher); ok {
			flusher.TestFlush(ctx)
		}
	})
}

func (m *Manager) each(f func(c Core)) {
	m.components.Range(func(name, component interface{}) bool {
		func() {
			f(component.(Core))
		}()
		return true
	})
}

func (m *Manager) panicRecovery(action string, comp Core) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok {
			log.Printf("error in componentmanager: %s of %s failed with panic: %s", action, comp.Name(), err.Error())
			return
		}
		log.Printf("error in componentmanager: %s of %s failed with panic: %v", action, comp.Name(), r)
	}
}
