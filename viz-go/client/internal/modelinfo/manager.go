package modelinfo

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-golib/errors"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru"
)

const cacheSize = 8

// Info describes the architecture of one backend model.
type Info struct {
	ModelType  string  `json:"model_type"`
	Layers     []Layer `json:"layers"`
	Parameters int     `json:"parameters"`
}

// Layer is one entry of a model's layer listing.
type Layer struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Units  int    `json:"units"`
	Output string `json:"output_shape"`
}

// Models is the backend's model inventory.
type Models struct {
	Available []string `json:"available"`
	Active    string   `json:"active"`
}

// Manager serves model architecture metadata. Info responses are cached per
// model type: architectures only change on a backend redeploy, so a switch
// back to a previously active model answers from cache.
type Manager struct {
	client *http.Client
	cache  *lru.Cache

	mu     sync.Mutex
	base   string
	active string
}

// NewManager returns a new model metadata component.
func NewManager() *Manager {
	cache, _ := lru.New(cacheSize)
	return &Manager{
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  cache,
	}
}

// Name implements component.Core
func (m *Manager) Name() string {
	return "modelinfo"
}

// Initialize implements component.Initializer
func (m *Manager) Initialize(opts component.InitializerOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = opts.Configuration.BackendURL
}

// NetworkOnline implements component.NetworkEventer: a backend restart may
// have changed the deployed architectures.
func (m *Manager) NetworkOnline() {
	m.cache.Purge()
}

// NetworkOffline implements component.NetworkEventer
func (m *Manager) NetworkOffline() {}

// RegisterHandlers implements component.Handlers
func (m *Manager) RegisterHandlers(router *mux.Router) {
	router.HandleFunc("/clientapi/model/info", m.handleInfo).Methods("GET")
	router.HandleFunc("/clientapi/models", m.handleModels).Methods("GET")
	router.HandleFunc("/clientapi/model/switch", m.handleSwitch).Methods("POST")
}

// ActiveInfo returns info for the currently active model.
func (m *Manager) ActiveInfo() (Info, error) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	return m.info(active)
}

// info fetches model info, answering from cache when possible. The zero key
// asks the backend about whatever model is currently active.
func (m *Manager) info(modelType string) (Info, error) {
	if cached, ok := m.cache.Get(modelType); ok {
		return cached.(Info), nil
	}

	m.mu.Lock()
	base := m.base
	m.mu.Unlock()

	url := base + "/model/info"
	if modelType != "" {
		url += "?model_type=" + modelType
	}
	body, err := m.get(url)
	if err != nil {
		return Info{}, err
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return Info{}, errors.Wrapf(err, "malformed model info")
	}

	m.cache.Add(modelType, info)
	if info.ModelType != "" && info.ModelType != modelType {
		m.cache.Add(info.ModelType, info)
	}
	return info, nil
}

// models fetches the backend's model inventory. Never cached: the active
// model changes out from under us.
func (m *Manager) models() (Models, error) {
	m.mu.Lock()
	base := m.base
	m.mu.Unlock()

	body, err := m.get(base + "/models/available")
	if err != nil {
		return Models{}, err
	}

	var models Models
	if err := json.Unmarshal(body, &models); err != nil {
		return Models{}, errors.Wrapf(err, "malformed model inventory")
	}

	m.mu.Lock()
	m.active = models.Active
	m.mu.Unlock()
	return models, nil
}

// switchModel asks the backend to activate a different model.
func (m *Manager) switchModel(modelType string) (Models, error) {
	m.mu.Lock()
	base := m.base
	m.mu.Unlock()

	payload, _ := json.Marshal(map[string]string{"model_type": modelType})
	resp, err := m.client.Post(base+"/model/switch", "application/json", bytes.NewReader(payload))
	if err != nil {
		return Models{}, errors.Wrapf(err, "model switch failed")
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return Models{}, errors.WrapfWithStack(err, "cannot read switch response")
	}
	if resp.StatusCode != http.StatusOK {
		return Models{}, errors.Errorf("model switch answered HTTP %d", resp.StatusCode)
	}

	var models Models
	if err := json.Unmarshal(body, &models); err != nil {
		return Models{}, errors.Wrapf(err, "malformed switch response")
	}

	m.mu.Lock()
	m.active = models.Active
	m.mu.Unlock()
	return models, nil
}

func (m *Manager) get(url string) ([]byte, error) {
	resp, err := m.client.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "backend request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("backend answered HTTP %d for %s", resp.StatusCode, url)
	}
	return ioutil.ReadAll(resp.Body)
}

// --

func (m *Manager) handleInfo(w http.ResponseWriter, r *http.Request) {
	modelType := r.URL.Query().Get("model_type")
	info, err := m.info(modelType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, info)
}

func (m *Manager) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := m.models()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, models)
}

func (m *Manager) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ModelType string `json:"model_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ModelType == "" {
		http.Error(w, "missing model_type", http.StatusBadRequest)
		return
	}
	models, err := m.switchModel(body.ModelType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, models)
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
