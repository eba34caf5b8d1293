package history

import (
	"sync"
	"time"

	"github.com/RayAKaan/NN-Visualizer/viz-go/neural"
)

// baseInterval is the playback cadence at 1x speed.
const baseInterval = 100 * time.Millisecond

// Publisher receives the snapshot a replay position resolves to.
type Publisher interface {
	PublishReplay(state neural.State)
}

// Replay steps through the snapshots of a Store. A single position cursor
// advances on a fixed cadence while playing, scaled by the speed multiplier,
// and stops at the last snapshot, never wrapping.
type Replay struct {
	store     *Store
	publisher Publisher

	mu      sync.Mutex
	index   int
	playing bool
	speed   float64
	gen     int
}

func newReplay(store *Store, publisher Publisher) *Replay {
	return &Replay{
		store:     store,
		publisher: publisher,
		speed:     1,
	}
}

// Seek moves the cursor to i, clamped to the valid range, and publishes the
// snapshot there immediately. Playback state is unchanged.
func (r *Replay) Seek(i int) {
	max := r.store.Len() - 1
	if i > max {
		i = max
	}
	if i < 0 {
		i = 0
	}

	r.mu.Lock()
	r.index = i
	r.mu.Unlock()

	r.publish(i)
}

// Play starts advancing the cursor. Playing from the last snapshot, or over
// an empty history, stops again on the first tick.
func (r *Replay) Play() {
	r.mu.Lock()
	if r.playing {
		r.mu.Unlock()
		return
	}
	r.playing = true
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	go r.loop(gen)
}

// Stop halts playback. The cursor stays where it is, and no tick scheduled
// before the stop may move it afterwards.
func (r *Replay) Stop() {
	r.mu.Lock()
	r.playing = false
	r.gen++
	r.mu.Unlock()
}

// SetSpeed adjusts the playback speed multiplier. Takes effect on the next
// tick. Non-positive values are ignored.
func (r *Replay) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	r.mu.Lock()
	r.speed = speed
	r.mu.Unlock()
}

// Index returns the current cursor position.
func (r *Replay) Index() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Playing reports whether playback is active.
func (r *Replay) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

// Speed returns the current speed multiplier.
func (r *Replay) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

func (r *Replay) loop(gen int) {
	for {
		r.mu.Lock()
		if !r.playing || r.gen != gen {
			r.mu.Unlock()
			return
		}
		interval := time.Duration(float64(baseInterval) / r.speed)
		r.mu.Unlock()

		time.Sleep(interval)

		r.mu.Lock()
		if !r.playing || r.gen != gen {
			r.mu.Unlock()
			return
		}
		next := r.index + 1
		last := r.store.Len() - 1
		if next > last {
			r.playing = false
			r.mu.Unlock()
			return
		}
		r.index = next
		if next == last {
			r.playing = false
		}
		r.mu.Unlock()

		r.publish(next)
	}
}

// clamp pulls the cursor back into range after the history shrank.
func (r *Replay) clamp() {
	max := r.store.Len() - 1
	if max < 0 {
		max = 0
	}
	r.mu.Lock()
	if r.index > max {
		r.index = max
	}
	r.mu.Unlock()
}

func (r *Replay) publish(i int) {
	snapshot, ok := r.store.At(i)
	if !ok {
		return
	}
	r.publisher.PublishReplay(snapshot.State())
}
