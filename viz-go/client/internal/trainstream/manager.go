package trainstream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/client/internal/trainmetrics"
	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/RayAKaan/NN-Visualizer/viz-go/train"
	"github.com/gorilla/mux"
	"github.com/kiteco/websocket"
)

const dialTimeout = 15 * time.Second

// ConnState is the connection lifecycle state of the streaming client.
type ConnState string

// The connection states. Closing at any time returns to Disconnected.
const (
	Disconnected ConnState = "disconnected"
	Connecting   ConnState = "connecting"
	Connected    ConnState = "connected"
)

// Publisher receives the latest live snapshot after every accepted update.
type Publisher interface {
	PublishLive(state neural.State)
}

// Counters mirrors the backend's notion of training progress.
type Counters struct {
	Epoch        int `json:"epoch"`
	Batch        int `json:"batch"`
	TotalBatches int `json:"totalBatches"`
	TotalEpochs  int `json:"totalEpochs"`
}

// Manager owns the single WebSocket connection to the backend's /train
// endpoint. Commands issued while not connected are queued and flushed FIFO
// on connect; inbound messages are dispatched strictly in arrival order by
// a single reader goroutine.
type Manager struct {
	components *component.Manager
	metrics    *trainmetrics.Accumulator
	publisher  Publisher

	mu        sync.Mutex
	url       string
	connState ConnState
	connGen   int // bumped by Connect and Disconnect so stale dials cannot install
	conn      *websocket.Conn
	queue     []train.Command
	status    train.Status
	lastError string
	counters  Counters

	layers     map[string][]float64
	weights    map[string]neural.Matrix
	gradients  map[string]train.GradientSummary
	completion *train.Complete

	cancel context.CancelFunc
}

// NewManager returns a new streaming client component. The accumulator and
// publisher are owned by the caller; the manager is their only writer.
func NewManager(components *component.Manager, metrics *trainmetrics.Accumulator, publisher Publisher) *Manager {
	return &Manager{
		components: components,
		metrics:    metrics,
		publisher:  publisher,
		connState:  Disconnected,
		status:     train.StatusIdle,
		layers:     map[string][]float64{},
		weights:    map[string]neural.Matrix{},
		gradients:  map[string]train.GradientSummary{},
	}
}

// Name implements component.Core
func (m *Manager) Name() string {
	return "trainstream"
}

// Initialize implements component.Initializer
func (m *Manager) Initialize(opts component.InitializerOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url = opts.Configuration.TrainSocketURL()
}

// Terminate implements component.Terminater
func (m *Manager) Terminate() {
	m.Disconnect()
}

// RegisterHandlers implements component.Handlers
func (m *Manager) RegisterHandlers(router *mux.Router) {
	router.HandleFunc("/clientapi/training/status", m.handleStatus).Methods("GET")
	router.HandleFunc("/clientapi/training/metrics", m.handleMetrics).Methods("GET")
	router.HandleFunc("/clientapi/training/command", m.handleCommand).Methods("POST")
	router.HandleFunc("/clientapi/training/connect", m.handleConnect).Methods("POST")
}

// ConnState returns the current connection lifecycle state.
func (m *Manager) ConnState() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connState
}

// Connected reports whether the socket is currently established.
func (m *Manager) Connected() bool {
	return m.ConnState() == Connected
}

// Status returns the current training status.
func (m *Manager) Status() train.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastError returns the most recent transport or training error message, or
// the empty string.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// Progress returns the backend's training progress counters.
func (m *Manager) Progress() Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters
}

// Completion returns the summary of the last completed run, if any.
func (m *Manager) Completion() (train.Complete, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completion == nil {
		return train.Complete{}, false
	}
	return *m.completion, true
}

// Connect dials the training endpoint. It is idempotent: calls while
// connecting or connected are no-ops. The dial happens asynchronously; use
// ConnState to observe progress. Reconnecting after a close or error is
// always an explicit caller action, never automatic.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.connState != Disconnected {
		m.mu.Unlock()
		return
	}
	m.connState = Connecting
	m.connGen++
	gen := m.connGen
	url := m.url
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go m.dialAndListen(ctx, url, gen)
}

// Disconnect closes the connection, if any, and returns the client to
// Disconnected. The training status is left untouched: only server messages
// change it.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	conn := m.conn
	m.cancel = nil
	m.conn = nil
	m.connState = Disconnected
	m.connGen++
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

// Send issues a control command. While not connected the command is queued
// and flushed, in issue order, once the connection is up. The local status
// is updated optimistically for immediate UI feedback; authoritative server
// status messages overwrite it.
func (m *Manager) Send(cmd train.Command) {
	m.mu.Lock()
	if status, ok := cmd.OptimisticStatus(); ok {
		m.status = status
	}
	if cmd.Command == train.CommandConfigure {
		// a new run invalidates accumulated series, the live snapshot and
		// the completion summary; stale layer names from a different model
		// must not bleed into the next run
		m.metrics.Reset()
		m.completion = nil
		m.lastError = ""
		m.layers = map[string][]float64{}
		m.weights = map[string]neural.Matrix{}
		m.gradients = map[string]train.GradientSummary{}
	}
	conn := m.conn
	if m.connState != Connected || conn == nil {
		m.queue = append(m.queue, cmd)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if cmd.Command == train.CommandStart {
		m.components.TrainingStarted()
	}
	m.write(conn, cmd)
}

func (m *Manager) write(conn *websocket.Conn, cmd train.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	wc, err := conn.Writer(ctx, websocket.MessageText)
	if err != nil {
		log.Println("trainstream: cannot open writer:", err)
		return
	}
	defer wc.Close()
	if err := json.NewEncoder(wc).Encode(cmd); err != nil {
		log.Println("trainstream: cannot send command:", err)
	}
}

func (m *Manager) dialAndListen(ctx context.Context, url string, gen int) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	cancel()
	if err != nil {
		m.mu.Lock()
		if m.connGen == gen {
			m.connState = Disconnected
			m.lastError = "cannot reach training endpoint: " + err.Error()
		}
		m.mu.Unlock()
		log.Println("trainstream: dial failed:", err)
		return
	}
	// weight/gradient frames can be large
	conn.SetReadLimit(1 << 24)

	m.mu.Lock()
	if m.connGen != gen {
		// Disconnect or a newer Connect raced the dial
		m.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	m.conn = conn
	m.connState = Connected
	m.lastError = ""
	pending := m.queue
	m.queue = nil
	m.mu.Unlock()

	// flush commands queued while disconnected, in issue order
	for _, cmd := range pending {
		if cmd.Command == train.CommandStart {
			m.components.TrainingStarted()
		}
		m.write(conn, cmd)
	}

	m.listen(ctx, conn, gen)
}

// listen reads and dispatches inbound messages one at a time, preserving
// arrival order. It returns when the connection dies.
func (m *Manager) listen(ctx context.Context, conn *websocket.Conn, gen int) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			m.readClosed(ctx, err, gen)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}
		msg, err := train.Decode(data)
		if err != nil {
			// drop the frame, the stream itself is still healthy
			log.Println("trainstream: dropping message:", err)
			continue
		}
		m.dispatch(msg)
	}
}

// readClosed records the end of the connection. A clean close or a local
// Disconnect leaves the training status untouched; an abnormal transport
// error surfaces as status error. There is no automatic reconnect.
func (m *Manager) readClosed(ctx context.Context, err error, gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connGen != gen {
		// a newer Connect owns the state
		return
	}
	m.conn = nil
	m.connState = Disconnected

	if ctx.Err() != nil {
		return
	}
	if websocket.CloseStatus(err) != -1 {
		log.Println("trainstream: connection closed:", err)
		return
	}
	m.status = train.StatusError
	m.lastError = "training stream failed: " + err.Error()
	log.Println("trainstream: connection error:", err)
}

func (m *Manager) dispatch(msg interface{}) {
	switch msg := msg.(type) {
	case train.BatchUpdate:
		m.applyBatch(msg)
	case train.EpochUpdate:
		m.metrics.RecordEpoch(msg)
	case train.WeightsUpdate:
		m.applyWeights(msg)
	case train.StatusMessage:
		if msg.Status.Valid() {
			m.mu.Lock()
			m.status = msg.Status
			m.mu.Unlock()
		}
	case train.Complete:
		m.mu.Lock()
		m.status = train.StatusCompleted
		completion := msg
		m.completion = &completion
		m.mu.Unlock()
		m.components.TrainingHalted()
	case train.Stopped:
		m.mu.Lock()
		m.status = train.StatusIdle
		m.mu.Unlock()
		m.components.TrainingHalted()
	case train.Failed:
		m.mu.Lock()
		m.status = train.StatusError
		m.lastError = msg.Message
		m.mu.Unlock()
		m.components.TrainingHalted()
	case train.CommandResponse:
		if !msg.OK && msg.Message != "" {
			log.Printf("trainstream: command %s rejected: %s", msg.Command, msg.Message)
		}
	}
}

func (m *Manager) applyBatch(update train.BatchUpdate) {
	m.metrics.RecordBatch(update)

	m.mu.Lock()
	m.status = train.StatusRunning
	m.counters = Counters{
		Epoch:        update.Epoch,
		Batch:        update.Batch,
		TotalBatches: update.TotalBatches,
		TotalEpochs:  update.TotalEpochs,
	}
	for name, layer := range update.Activations {
		values := layer.Values
		if len(values) == 0 {
			values = layer.Means
		}
		if len(values) > 0 {
			m.layers[name] = values
		}
	}
	for name, summary := range update.Gradients {
		m.gradients[name] = summary
	}
	for name, matrix := range update.Weights {
		m.weights[name] = matrix
	}
	state := m.liveStateLocked()
	m.mu.Unlock()

	m.publisher.PublishLive(state)
}

func (m *Manager) applyWeights(update train.WeightsUpdate) {
	m.mu.Lock()
	for name, matrix := range update.Weights {
		m.weights[name] = matrix
	}
	state := m.liveStateLocked()
	m.mu.Unlock()

	m.publisher.PublishLive(state)
}

// LiveState returns the current live snapshot.
func (m *Manager) LiveState() neural.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveStateLocked()
}

func (m *Manager) liveStateLocked() neural.State {
	state := neural.EmptyState()
	for name, values := range m.layers {
		state.Layers[name] = values
	}
	state.Edges = neural.ProjectAll(m.weights, m.layers, neural.ProjectOptions{})
	return state
}

// --

type statusResponse struct {
	Connection ConnState       `json:"connection"`
	Status     train.Status    `json:"status"`
	Error      string          `json:"error,omitempty"`
	Progress   Counters        `json:"progress"`
	Completion *train.Complete `json:"completion,omitempty"`
}

func (m *Manager) handleStatus(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	resp := statusResponse{
		Connection: m.connState,
		Status:     m.status,
		Error:      m.lastError,
		Progress:   m.counters,
		Completion: m.completion,
	}
	m.mu.Unlock()
	writeJSON(w, resp)
}

func (m *Manager) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, m.metrics.Series())
}

func (m *Manager) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd train.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil || cmd.Command == "" {
		http.Error(w, "malformed command", http.StatusBadRequest)
		return
	}
	m.Send(cmd)
	w.WriteHeader(http.StatusAccepted)
}

func (m *Manager) handleConnect(w http.ResponseWriter, r *http.Request) {
	m.Connect()
	writeJSON(w, map[string]interface{}{"connection": m.ConnState()})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	buf, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}
