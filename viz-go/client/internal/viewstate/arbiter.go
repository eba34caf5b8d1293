package viewstate

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/RayAKaan/NN-Visualizer/viz-go/client/component"
	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
	"github.com/gorilla/mux"
)

// Arbiter decides which snapshot the UI sees: the live stream or the replay
// cursor. Exactly one source is active at a time. Replay wins as soon as the
// user scrubs the timeline; live resumes only on an explicit jump or a fresh
// training run. The losing source keeps updating in the background so
// switching back is instant.
type Arbiter struct {
	components *component.Manager

	mu          sync.Mutex
	live        bool
	liveState   neural.State
	replayState neural.State
}

// NewArbiter returns an arbiter that republishes the active snapshot through
// the given component manager.
func NewArbiter(components *component.Manager) *Arbiter {
	return &Arbiter{
		components:  components,
		live:        true,
		liveState:   neural.EmptyState(),
		replayState: neural.EmptyState(),
	}
}

// Name implements component.Core
func (a *Arbiter) Name() string {
	return "viewstate"
}

// Initialize implements component.Initializer
func (a *Arbiter) Initialize(opts component.InitializerOptions) {}

// TrainingStarted implements component.TrainingEventer: a fresh run always
// pulls the view back to live.
func (a *Arbiter) TrainingStarted() {
	a.JumpToLive()
}

// TrainingHalted implements component.TrainingEventer. The view stays where
// it is: a finished run keeps showing its final snapshot.
func (a *Arbiter) TrainingHalted() {}

// PublishLive records a snapshot from the live training stream. It reaches
// the UI only while the live source is active.
func (a *Arbiter) PublishLive(state neural.State) {
	a.mu.Lock()
	a.liveState = state
	forward := a.live
	a.mu.Unlock()

	if forward {
		a.components.SnapshotUpdated(state)
	}
}

// PublishReplay records a snapshot from the replay cursor and switches the
// view to replay.
func (a *Arbiter) PublishReplay(state neural.State) {
	a.mu.Lock()
	a.replayState = state
	a.live = false
	a.mu.Unlock()

	a.components.SnapshotUpdated(state)
}

// JumpToLive switches the view back to the live source and republishes the
// latest live snapshot.
func (a *Arbiter) JumpToLive() {
	a.mu.Lock()
	already := a.live
	a.live = true
	state := a.liveState
	a.mu.Unlock()

	if !already {
		a.components.SnapshotUpdated(state)
	}
}

// Live reports whether the live source is active.
func (a *Arbiter) Live() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Current returns the snapshot of the active source.
func (a *Arbiter) Current() neural.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.live {
		return a.liveState
	}
	return a.replayState
}

// RegisterHandlers implements component.Handlers
func (a *Arbiter) RegisterHandlers(router *mux.Router) {
	router.HandleFunc("/clientapi/state/current", a.handleCurrent).Methods("GET")
	router.HandleFunc("/clientapi/state/live", a.handleJumpToLive).Methods("POST")
}

func (a *Arbiter) handleCurrent(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	resp := struct {
		Live  bool         `json:"live"`
		State neural.State `json:"state"`
	}{Live: a.live, State: a.liveState}
	if !a.live {
		resp.State = a.replayState
	}
	a.mu.Unlock()

	buf, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

func (a *Arbiter) handleJumpToLive(w http.ResponseWriter, r *http.Request) {
	a.JumpToLive()
	w.WriteHeader(http.StatusNoContent)
}
