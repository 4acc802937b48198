package testutil

import "sync"

// ClickRecorder records clicks for assertions. It is safe for concurrent use.
type ClickRecorder struct {
	mu      sync.Mutex
	clicks  []bool
	unlocks int
}

// PlayClick records one click.
func (r *ClickRecorder) PlayClick(accented bool) {
	r.mu.Lock()
	r.clicks = append(r.clicks, accented)
	r.mu.Unlock()
}

// EnsureUnlocked counts unlock requests.
func (r *ClickRecorder) EnsureUnlocked() {
	r.mu.Lock()
	r.unlocks++
	r.mu.Unlock()
}

// Clicks returns the accent flag of every click so far.
func (r *ClickRecorder) Clicks() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.clicks))
	copy(out, r.clicks)
	return out
}

// Count returns the number of clicks played.
func (r *ClickRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clicks)
}

// Unlocks returns how many times EnsureUnlocked was called.
func (r *ClickRecorder) Unlocks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unlocks
}
