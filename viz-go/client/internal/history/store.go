package history

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/train"
	"github.com/gorilla/mux"
)

const fetchTimeout = 30 * time.Second

// Store holds the durable list of past training snapshots fetched from the
// backend. The list is server-authoritative and read-only here: entries are
// immutable once loaded, and a fetch failure degrades to an empty history.
type Store struct {
	client *http.Client
	replay *Replay

	mu        sync.Mutex
	base      string
	snapshots []train.HistorySnapshot
	loaded    bool
	loading   bool
}

// NewStore returns a new history store component. The attached replay
// controller publishes scrubbed snapshots through the given publisher.
func NewStore(publisher Publisher) *Store {
	s := &Store{
		client: &http.Client{Timeout: fetchTimeout},
	}
	s.replay = newReplay(s, publisher)
	return s
}

// Name implements component.Core
func (s *Store) Name() string {
	return "history"
}

// Initialize implements component.Initializer
func (s *Store) Initialize(opts component.InitializerOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = opts.Configuration.BackendURL
}

// Terminate implements component.Terminater
func (s *Store) Terminate() {
	s.replay.Stop()
}

// TrainingHalted implements component.TrainingEventer: a finished run means
// new snapshots are available server-side.
func (s *Store) TrainingHalted() {
	go s.Fetch(context.Background())
}

// TrainingStarted implements component.TrainingEventer
func (s *Store) TrainingStarted() {}

// GoTick implements component.Ticker: history grows while a run streams, a
// periodic refresh keeps the scrub range current between halt events. Fetch
// drops overlapping refreshes itself.
func (s *Store) GoTick(ctx context.Context) {
	s.Fetch(ctx)
}

// Replay returns the replay controller over this store.
func (s *Store) Replay() *Replay {
	return s.replay
}

// Fetch bulk-loads the training history. Any failure leaves an empty, but
// loaded, history: replay over nothing is the degraded mode, never a crash.
func (s *Store) Fetch(ctx context.Context) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return
	}
	s.loading = true
	base := s.base
	s.mu.Unlock()

	snapshots := s.download(ctx, base)

	s.mu.Lock()
	s.snapshots = snapshots
	s.loaded = true
	s.loading = false
	s.mu.Unlock()

	// the previous run's history may have been longer
	s.replay.clamp()
}

func (s *Store) download(ctx context.Context, base string) []train.HistorySnapshot {
	req, err := http.NewRequest("GET", base+"/training/history", nil)
	if err != nil {
		return nil
	}
	req = req.WithContext(ctx)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Println("history: fetch failed:", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Println("history: fetch answered HTTP", resp.StatusCode)
		return nil
	}
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		log.Println("history: cannot read response:", err)
		return nil
	}
	return train.DecodeHistory(data)
}

// Len returns the number of loaded snapshots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// At returns the snapshot at index i, if it exists.
func (s *Store) At(i int) (train.HistorySnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.snapshots) {
		return train.HistorySnapshot{}, false
	}
	return s.snapshots[i], true
}

// Loaded reports whether a fetch has completed, successfully or not.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// setSnapshots is a test hook.
func (s *Store) setSnapshots(snapshots []train.HistorySnapshot) {
	s.mu.Lock()
	s.snapshots = snapshots
	s.loaded = true
	s.mu.Unlock()
	s.replay.clamp()
}

// --

// RegisterHandlers implements component.Handlers
func (s *Store) RegisterHandlers(router *mux.Router) {
	router.HandleFunc("/clientapi/history", s.handleList).Methods("GET")
	router.HandleFunc("/clientapi/history/refresh", s.handleRefresh).Methods("POST")
	router.HandleFunc("/clientapi/replay", s.handleReplayStatus).Methods("GET")
	router.HandleFunc("/clientapi/replay/seek", s.handleSeek).Methods("POST")
	router.HandleFunc("/clientapi/replay/play", s.handlePlay).Methods("POST")
	router.HandleFunc("/clientapi/replay/pause", s.handlePause).Methods("POST")
}

type historyEntry struct {
	Epoch     int     `json:"epoch"`
	Batch     int     `json:"batch"`
	Timestamp float64 `json:"timestamp"`
	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entries := make([]historyEntry, len(s.snapshots))
	for i, snapshot := range s.snapshots {
		entries[i] = historyEntry{
			Epoch:     snapshot.Epoch,
			Batch:     snapshot.Batch,
			Timestamp: snapshot.Timestamp,
			Loss:      snapshot.Loss,
			Accuracy:  snapshot.Accuracy,
		}
	}
	resp := map[string]interface{}{
		"loaded":  s.loaded,
		"loading": s.loading,
		"entries": entries,
	}
	s.mu.Unlock()
	writeJSON(w, resp)
}

func (s *Store) handleRefresh(w http.ResponseWriter, r *http.Request) {
	go s.Fetch(context.Background())
	w.WriteHeader(http.StatusAccepted)
}

func (s *Store) handleReplayStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"index":   s.replay.Index(),
		"playing": s.replay.Playing(),
		"speed":   s.replay.Speed(),
		"length":  s.Len(),
	})
}

func (s *Store) handleSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	s.replay.Seek(body.Index)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Store) handlePlay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Speed float64 `json:"speed"`
	}
	// body is optional
	json.NewDecoder(r.Body).Decode(&body)
	if body.Speed > 0 {
		s.replay.SetSpeed(body.Speed)
	}
	s.replay.Play()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Store) handlePause(w http.ResponseWriter, r *http.Request) {
	s.replay.Stop()
	w.WriteHeader(http.StatusNoContent)
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
