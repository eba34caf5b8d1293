package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/RayAKaan/NN-Visualizer/viz-golib/errors"
	"github.com/gorilla/mux"
)

const requestTimeout = 10 * time.Second

// Result is the outcome of the most recent completed prediction cycle.
type Result struct {
	// Raw is the backend's prediction payload as received, for consumers
	// that render model-type specific extras (feature maps, explanations).
	Raw json.RawMessage `json:"raw,omitempty"`
	// State is the normalized renderable snapshot derived from the /state
	// response of the same cycle.
	State neural.State `json:"state"`
	// InferenceMillis is the wall-clock time of the cycle.
	InferenceMillis float64 `json:"inferenceMillis"`
}

// Manager is the debounced polling client for the predict and state
// endpoints. Rapid calls during continuous drawing coalesce into one request
// after a quiet period; only one cycle is in flight at a time, and a cycle's
// results are applied atomically only if both requests succeed. Failures
// preserve the last good result and surface a readable error string.
type Manager struct {
	client *http.Client

	mu       sync.Mutex
	base     string
	debounce time.Duration
	timer    *time.Timer
	gen      int // identifies the newest request, see fire()
	pixels   []float64
	model    string
	loading  bool
	result   Result
	lastErr  string

	// flight serializes prediction cycles so a superseded response can
	// never overwrite a newer one
	flight sync.Mutex
}

// NewManager returns a new polling client component.
func NewManager() *Manager {
	return &Manager{
		client:   &http.Client{Timeout: requestTimeout},
		debounce: 50 * time.Millisecond,
	}
}

// Name implements component.Core
func (m *Manager) Name() string {
	return "predict"
}

// Initialize implements component.Initializer
func (m *Manager) Initialize(opts component.InitializerOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = opts.Configuration.BackendURL
	if opts.Configuration.PredictDebounce > 0 {
		m.debounce = opts.Configuration.PredictDebounce
	}
}

// Terminate implements component.Terminater
func (m *Manager) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// RegisterHandlers implements component.Handlers
func (m *Manager) RegisterHandlers(router *mux.Router) {
	router.HandleFunc("/clientapi/predict", m.handlePredict).Methods("POST")
	router.HandleFunc("/clientapi/predict/result", m.handleResult).Methods("GET")
	router.HandleFunc("/clientapi/weights", m.handleWeights).Methods("GET")
}

// Weights fetches the current weight matrices for the given model type.
// One-shot, never debounced: weights are pulled on demand when the live
// stream has not delivered any yet.
func (m *Manager) Weights(modelType string) (map[string]neural.Matrix, error) {
	m.mu.Lock()
	base := m.base
	m.mu.Unlock()

	url := base + "/weights"
	if modelType != "" {
		url += "?model_type=" + modelType
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "weights request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s answered HTTP %d", url, resp.StatusCode)
	}
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrapf(err, "malformed weights payload")
	}
	return neural.MatricesByName(payload), nil
}

// Request schedules a prediction for the drawn pixels. Calls within the
// debounce window replace the pending one; only the most recent call's
// request is issued once the window elapses.
func (m *Manager) Request(pixels []float64, modelType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pixels = append([]float64(nil), pixels...)
	m.model = modelType
	m.loading = true
	m.gen++
	gen := m.gen
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, func() { m.fire(gen) })
}

// TestFlush fires a pending debounced request immediately and waits for the
// running cycle to drain. Test support only.
func (m *Manager) TestFlush(ctx context.Context) {
	m.mu.Lock()
	timer := m.timer
	gen := m.gen
	m.mu.Unlock()

	if timer != nil && timer.Stop() {
		m.fire(gen)
		return
	}
	m.flight.Lock()
	m.flight.Unlock()
}

// Result returns the last completed cycle's result.
func (m *Manager) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Error returns the human-readable error of the last failed cycle, or the
// empty string after a success.
func (m *Manager) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Loading reports whether a request is pending or in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) fire(gen int) {
	m.flight.Lock()
	defer m.flight.Unlock()

	m.mu.Lock()
	base := m.base
	pixels := m.pixels
	model := m.model
	m.mu.Unlock()

	body := map[string]interface{}{"pixels": pixels}
	if model != "" {
		body["model_type"] = model
	}

	start := time.Now()

	// the predict and state calls of one cycle run in parallel and are
	// both awaited; partial successes are discarded
	var predictRaw, stateRaw []byte
	var predictErr, stateErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		predictRaw, predictErr = m.post(base+"/predict", body)
	}()
	go func() {
		defer wg.Done()
		stateRaw, stateErr = m.post(base+"/state", body)
	}()
	wg.Wait()

	elapsed := float64(time.Since(start)) / float64(time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	// a newer debounced request may already be pending; only its own cycle
	// is allowed to clear the loading flag
	if m.gen == gen {
		m.loading = false
	}

	if err := errors.Combine(predictErr, stateErr); err != nil {
		// keep the last good result visible
		m.lastErr = "prediction failed: " + err.Error()
		log.Println("predict:", err)
		return
	}

	m.result = Result{
		Raw:             json.RawMessage(predictRaw),
		State:           neural.Normalize(stateRaw),
		InferenceMillis: elapsed,
	}
	m.lastErr = ""
}

func (m *Manager) post(url string, body interface{}) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode request")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequest("POST", url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s answered HTTP %d", url, resp.StatusCode)
	}
	return data, nil
}

// --

type resultResponse struct {
	Result
	Error   string `json:"error,omitempty"`
	Loading bool   `json:"loading"`
}

func (m *Manager) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pixels    []float64 `json:"pixels"`
		ModelType string    `json:"model_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	m.Request(body.Pixels, body.ModelType)
	w.WriteHeader(http.StatusAccepted)
}

func (m *Manager) handleWeights(w http.ResponseWriter, r *http.Request) {
	weights, err := m.Weights(r.URL.Query().Get("model_type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	buf, err := json.Marshal(weights)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

func (m *Manager) handleResult(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	resp := resultResponse{Result: m.result, Error: m.lastErr, Loading: m.loading}
	m.mu.Unlock()

	buf, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}
