package network

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/gorilla/mux"
)

var (
	healthCheckErrorInterval = 2 * time.Second
	healthCheckTimeout       = 3 * time.Second
)

// NewManager returns a new backend health monitor component
func NewManager(components *component.Manager) *Manager {
	return &Manager{
		components: components,
		online:     1,
		interval:   5 * time.Second,
		client:     &http.Client{},
	}
}

// Manager polls the backend /health endpoint and broadcasts online/offline
// transitions to the other components.
type Manager struct {
	client     *http.Client
	components *component.Manager
	online     int64
	retries    int64
	interval   time.Duration
	base       string

	forceOffline bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Name implements interface Core
func (m *Manager) Name() string {
	return "network"
}

// Initialize implements the interface Initializer
func (m *Manager) Initialize(opts component.InitializerOptions) {
	m.base = opts.Configuration.BackendURL
	if opts.Configuration.HealthInterval > 0 {
		m.interval = opts.Configuration.HealthInterval
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	go m.checkLoop(m.ctx)
}

// Terminate implements component.Terminater
func (m *Manager) Terminate() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// RegisterHandlers implements interface Handlers
func (m *Manager) RegisterHandlers(router *mux.Router) {
	router.HandleFunc("/clientapi/online", m.handleOnline).Methods("GET")
	router.HandleFunc("/clientapi/checkonline", m.handleCheckOnline).Methods("GET")
}

func (m *Manager) doHealthCheck(ctx context.Context) time.Duration {
	if m.forceOffline {
		atomic.StoreInt64(&m.online, 0)
		m.components.NetworkOffline()
		return m.interval
	}

	req, err := http.NewRequest("GET", m.base+"/health", nil)
	if err != nil {
		return m.interval
	}
	req = req.WithContext(ctx)

	resp, err := m.client.Do(req)
	if err == nil && resp.StatusCode != http.StatusOK {
		io.Copy(ioutil.Discard, resp.Body)
		resp.Body.Close()
		err = errStatus(resp.StatusCode)
	}
	if err != nil {
		atomic.AddInt64(&m.retries, 1)
		if m.Online() {
			log.Println("network: backend unreachable:", err)
			atomic.StoreInt64(&m.online, 0)
			m.components.NetworkOffline()
		}
		return healthCheckErrorInterval
	}

	io.Copy(ioutil.Discard, resp.Body)
	resp.Body.Close()

	atomic.StoreInt64(&m.retries, 0)
	if !m.Online() {
		log.Println("network: backend reachable again")
		atomic.StoreInt64(&m.online, 1)
		m.components.NetworkOnline()
	}

	return m.interval
}

func (m *Manager) checkLoop(ctx context.Context) {
	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			func() {
				checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
				defer cancel()
				nextTick := m.doHealthCheck(checkCtx)
				timer.Reset(nextTick)
			}()
		}
	}
}

// Online implements interface component.NetworkManager
func (m *Manager) Online() bool {
	return atomic.LoadInt64(&m.online) == int64(1)
}

// Retries returns the number of consecutive failed health checks.
func (m *Manager) Retries() int {
	return int(atomic.LoadInt64(&m.retries))
}

// CheckNow implements interface component.NetworkManager
func (m *Manager) CheckNow(ctx context.Context) bool {
	m.doHealthCheck(ctx)
	return m.Online()
}

// SetOffline forces the offline state, for tests and for pausing polling.
func (m *Manager) SetOffline(offline bool) {
	if offline {
		atomic.StoreInt64(&m.online, 0)
	}
	m.forceOffline = offline
}

type errStatus int

func (e errStatus) Error() string {
	return "health endpoint answered HTTP " + strconv.Itoa(int(e))
}

type onlineResponse struct {
	Online  bool `json:"online"`
	Retries int  `json:"retries"`
}

func (m *Manager) handleOnline(w http.ResponseWriter, r *http.Request) {
	m.sendStatus(m.Online(), w)
}

func (m *Manager) handleCheckOnline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	m.sendStatus(m.CheckNow(ctx), w)
}

func (m *Manager) sendStatus(online bool, w http.ResponseWriter) {
	buf, err := json.Marshal(onlineResponse{
		Online:  online,
		Retries: m.Retries(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}
