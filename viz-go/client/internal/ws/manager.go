package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/gorilla/mux"
	"golang.org/x/net/websocket"
)

// Manager fans snapshot updates out to local UI websocket connections.
type Manager struct {
	mutex             sync.Mutex
	active            bool
	activeConns       map[*websocket.Conn]bool
	addConnectionChan chan string
	broadcastChan     chan string
	ctxCancel         func()
}

// NewManager returns a new Manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		active:            true,
		activeConns:       make(map[*websocket.Conn]bool),
		addConnectionChan: make(chan string),
		broadcastChan:     make(chan string),
		ctxCancel:         cancel,
	}

	// launch broadcasting go routine and return when it's ready
	onReady := make(chan struct{})
	go m.broadcaster(ctx, onReady)
	<-onReady

	return m
}

// Name implements component.Core
func (m *Manager) Name() string {
	return "ws"
}

// Terminate implements component.Terminater
func (m *Manager) Terminate() {
	m.CloseConnections()
}

// RegisterHandlers implements component.Handlers
func (m *Manager) RegisterHandlers(router *mux.Router) {
	// Handshake is left nil so UI shells that send no Origin header can
	// still subscribe.
	router.Handle("/clientapi/snapshots", websocket.Server{Handler: m.handleSnapshotsWS})
}

// SnapshotUpdated implements component.SnapshotEventer: every snapshot the
// arbiter publishes goes out to all subscribed UIs.
func (m *Manager) SnapshotUpdated(state neural.State) {
	m.BroadcastJSON(snapshotEnvelope{Type: "snapshot_update", State: state})
}

// TrainingStarted implements component.TrainingEventer
func (m *Manager) TrainingStarted() {
	m.BroadcastJSON(eventEnvelope{Type: "training_started"})
}

// TrainingHalted implements component.TrainingEventer
func (m *Manager) TrainingHalted() {
	m.BroadcastJSON(eventEnvelope{Type: "training_halted"})
}

type snapshotEnvelope struct {
	Type  string       `json:"type"`
	State neural.State `json:"state"`
}

type eventEnvelope struct {
	Type string `json:"type"`
}

// handleSnapshotsWS is the websocket endpoint used by UIs to subscribe to
// snapshot updates.
func (m *Manager) handleSnapshotsWS(conn *websocket.Conn) {
	defer conn.Close()

	if !m.IsActive() {
		log.Println("ignoring connection")
		return
	}

	m.addConnection(conn)
	defer m.removeConnection(conn)

	// subscribers don't speak, but reading detects the disconnect
	for {
		var ignored json.RawMessage
		if err := websocket.JSON.Receive(conn, &ignored); err != nil {
			return
		}
	}
}

// AcceptConnections sets whether the Manager will accept new websocket connections
func (m *Manager) AcceptConnections(val bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.active = val
}

// CloseConnections will close all active connections
func (m *Manager) CloseConnections() {
	m.ctxCancel()

	m.mutex.Lock()
	defer m.mutex.Unlock()
	for conn := range m.activeConns {
		if err := conn.Close(); err != nil {
			log.Printf("error closing connection `%s`: %v\n", getSocketPath(conn), err)
		}
	}
	m.activeConns = make(map[*websocket.Conn]bool)
}

// IsActive returns if the Manager is active.
func (m *Manager) IsActive() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.active
}

// BroadcastJSON serializes the provided data and sends it to all websocket connections.
func (m *Manager) BroadcastJSON(data interface{}) {
	buf, err := json.Marshal(data)
	if err != nil {
		log.Println("cannot marshal broadcast data:", err)
		return
	}
	m.Broadcast(string(buf))
}

// Broadcast sends the provided string to all websocket connections.
func (m *Manager) Broadcast(data string) {
	// Note that broadcastChan is intentionally not a buffered channel. This is so that
	// any blocking when writing responses will immediately cause subsequent events to drop.
	// This means that when the writing is unblocked, the most recent event will be sent (instead
	// of N old, buffered events)
	select {
	case m.broadcastChan <- data:
	default:
		log.Println("dropping snapshot broadcast")
	}
}

// ActiveConnections returns all active connections.
func (m *Manager) ActiveConnections() []*websocket.Conn {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var conns []*websocket.Conn
	for conn := range m.activeConns {
		conns = append(conns, conn)
	}
	return conns
}

// ConnectionAdded returns a channel that communicates if a connection is added to the manager
func (m *Manager) ConnectionAdded() chan string {
	return m.addConnectionChan
}

// --

func (m *Manager) addConnection(conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.activeConns[conn] = true
	log.Printf("got connection `%s` (total=%d)\n", getSocketPath(conn), len(m.activeConns))
	select {
	case m.addConnectionChan <- getSocketPath(conn):
	default:
		// no-op
	}
}

func (m *Manager) removeConnection(conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.activeConns, conn)
	log.Printf("lost connection `%s` (total=%d)\n", getSocketPath(conn), len(m.activeConns))
}

func (m *Manager) broadcaster(ctx context.Context, onReady chan<- struct{}) {
	defer func() {
		if ex := recover(); ex != nil {
			log.Println("panic in broadcaster:", ex)
		}
	}()

	// tell caller that this go routine is up and running
	close(onReady)

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-m.broadcastChan:
			activeConns := m.ActiveConnections()
			for _, conn := range activeConns {
				err := websocket.Message.Send(conn, data)
				if err != nil {
					log.Printf("error sending message to connection `%s`: %v\n", getSocketPath(conn), err)
				}
			}
		}
	}
}

func getSocketPath(conn *websocket.Conn) string {
	if conn == nil {
		return ""
	}

	if req := conn.Request(); req != nil && req.URL != nil {
		return req.URL.Path
	}
	return ""
}
