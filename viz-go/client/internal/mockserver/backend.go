package mockserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/RayAKaan/NN-Visualizer/viz-go/train"
	"github.com/gorilla/mux"
	"golang.org/x/net/websocket"
)

// NewBackend returns a mocked model-serving backend for unit tests. It
// supports the HTTP surface of the real backend:
//
//	GET  /health
//	POST /predict
//	POST /state
//	GET  /weights
//	GET  /model/info
//	GET  /models/available
//	POST /model/switch
//	GET  /training/history
//
// plus the /train WebSocket endpoint. Inbound training commands are exposed
// on Commands(); scripted server messages are pushed with Broadcast(). The
// server counts requests per path.
func NewBackend() *Backend {
	router := mux.NewRouter()

	server := &Backend{
		router:        router,
		healthy:       true,
		activeModel:   "ann",
		models:        []string{"ann", "cnn", "rnn"},
		responses:     map[string]json.RawMessage{},
		requestCounts: map[string]int64{},
		commands:      make(chan train.Command, 64),
	}

	router.HandleFunc("/health", server.handleHealth)
	router.HandleFunc("/predict", server.replayResponse("/predict")).Methods("POST")
	router.HandleFunc("/state", server.replayResponse("/state")).Methods("POST")
	router.HandleFunc("/weights", server.replayResponse("/weights")).Methods("GET")
	router.HandleFunc("/model/info", server.replayResponse("/model/info")).Methods("GET")
	router.HandleFunc("/models/available", server.handleModelsAvailable).Methods("GET")
	router.HandleFunc("/model/switch", server.handleModelSwitch).Methods("POST")
	router.HandleFunc("/training/history", server.replayResponse("/training/history")).Methods("GET")
	// Handshake is left nil so non-browser clients without an Origin
	// header are accepted.
	router.Handle("/train", websocket.Server{Handler: server.handleTrainWS})

	server.Server = httptest.NewServer(router)
	server.URL, _ = url.Parse(server.Server.URL)
	return server
}

// Backend is a scriptable stand-in for the model-serving backend.
type Backend struct {
	Server *httptest.Server
	// URL is the server's base http url
	URL *url.URL

	lock          sync.Mutex
	router        *mux.Router
	healthy       bool
	activeModel   string
	models        []string
	responses     map[string]json.RawMessage
	requestCounts map[string]int64

	conns    []*websocket.Conn
	commands chan train.Command
}

// Close shuts the server down.
func (s *Backend) Close() {
	s.lock.Lock()
	conns := s.conns
	s.conns = nil
	s.lock.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
	s.Server.Close()
}

// SetHealthy controls whether /health answers 200.
func (s *Backend) SetHealthy(healthy bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.healthy = healthy
}

// SetResponse sets the canned JSON body returned for the given path.
func (s *Backend) SetResponse(path string, body interface{}) {
	buf, _ := json.Marshal(body)
	s.lock.Lock()
	defer s.lock.Unlock()
	s.responses[path] = buf
}

// SetRawResponse sets a raw (possibly malformed) body for the given path.
func (s *Backend) SetRawResponse(path, body string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.responses[path] = json.RawMessage(body)
}

// RequestCount returns how often the given path was requested.
func (s *Backend) RequestCount(path string) int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.requestCounts[path]
}

// Commands returns the channel of training commands received on /train.
func (s *Backend) Commands() <-chan train.Command {
	return s.commands
}

// ConnectionCount returns the number of active /train connections.
func (s *Backend) ConnectionCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.conns)
}

// Broadcast sends the given message to every /train connection.
func (s *Backend) Broadcast(message interface{}) {
	s.lock.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.lock.Unlock()
	for _, conn := range conns {
		websocket.JSON.Send(conn, message)
	}
}

// BroadcastRaw sends a raw text frame to every /train connection.
func (s *Backend) BroadcastRaw(frame string) {
	s.lock.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.lock.Unlock()
	for _, conn := range conns {
		websocket.Message.Send(conn, frame)
	}
}

// CloseConnections drops all active /train connections server-side.
func (s *Backend) CloseConnections() {
	s.lock.Lock()
	conns := s.conns
	s.conns = nil
	s.lock.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}

// --

func (s *Backend) count(path string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.requestCounts[path]++
}

func (s *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.count("/health")
	s.lock.Lock()
	healthy := s.healthy
	s.lock.Unlock()
	if !healthy {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Backend) replayResponse(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.count(path)
		s.lock.Lock()
		body, ok := s.responses[path]
		s.lock.Unlock()
		if !ok {
			http.Error(w, "no canned response", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func (s *Backend) handleModelsAvailable(w http.ResponseWriter, r *http.Request) {
	s.count("/models/available")
	s.lock.Lock()
	resp := map[string]interface{}{"available": s.models, "active": s.activeModel}
	s.lock.Unlock()
	buf, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

func (s *Backend) handleModelSwitch(w http.ResponseWriter, r *http.Request) {
	s.count("/model/switch")
	var body struct {
		ModelType string `json:"model_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ModelType == "" {
		http.Error(w, "missing model_type", http.StatusBadRequest)
		return
	}
	s.lock.Lock()
	s.activeModel = body.ModelType
	resp := map[string]interface{}{"available": s.models, "active": s.activeModel}
	s.lock.Unlock()
	buf, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

func (s *Backend) handleTrainWS(conn *websocket.Conn) {
	s.lock.Lock()
	s.conns = append(s.conns, conn)
	s.lock.Unlock()

	defer func() {
		s.lock.Lock()
		for i, c := range s.conns {
			if c == conn {
				s.conns = append(s.conns[:i], s.conns[i+1:]...)
				break
			}
		}
		s.lock.Unlock()
		conn.Close()
	}()

	for {
		var cmd train.Command
		if err := websocket.JSON.Receive(conn, &cmd); err != nil {
			return
		}
		select {
		case s.commands <- cmd:
		default:
		}
	}
}
