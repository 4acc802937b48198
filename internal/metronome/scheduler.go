// Package metronome implements the drift-corrected beat scheduler that drives
// a practice session. A polling loop compares wall-clock time against the next
// beat deadline and consumes at most one beat per poll.
package metronome

import (
	"log/slog"
	"sync"
	"time"

	"github.com/npratt/gimme/internal/events"
)

// State represents the scheduler's play state.
type State string

// Scheduler states.
const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Defaults used when no option overrides them.
const (
	DefaultBPM             = 80
	DefaultBeatsPerMeasure = 4
	DefaultPollInterval    = 10 * time.Millisecond
)

// Snapshot is the observable scheduler state.
type Snapshot struct {
	State   State
	Beat    int // -1 when idle
	Measure int
	Played  int // beats fired since the last Start
	Run     int // number of Start calls so far
}

// Clicker plays the metronome click. PlayClick must not block.
type Clicker interface {
	PlayClick(accented bool)
	EnsureUnlocked()
}

// Ticker delivers poll ticks to the scheduler loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBPM sets the initial tempo.
func WithBPM(bpm int) Option {
	return func(s *Scheduler) {
		if bpm > 0 {
			s.bpm = bpm
		}
	}
}

// WithBeatsPerMeasure sets the initial measure length.
func WithBeatsPerMeasure(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.beatsPerMeasure = n
		}
	}
}

// WithMuted starts the scheduler with clicks suppressed.
func WithMuted(muted bool) Option {
	return func(s *Scheduler) {
		s.muted = muted
	}
}

// WithPollInterval overrides the loop polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTicker sets the factory used to create the poll ticker.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(s *Scheduler) {
		if newTicker != nil {
			s.newTicker = newTicker
		}
	}
}

// Scheduler counts beats and measures against the wall clock.
type Scheduler struct {
	clicker      Clicker
	router       *events.Router
	logger       *slog.Logger
	now          func() time.Time
	newTicker    func(time.Duration) Ticker
	pollInterval time.Duration

	// fireMu serializes a beat's click and event against transitions, so
	// nothing from a beat reaches the clicker or router after Pause, Reset
	// or Start returns. Acquired before mu.
	fireMu sync.Mutex

	mu              sync.Mutex
	state           State
	beat            int
	measure         int
	played          int
	run             int
	bpm             int
	beatsPerMeasure int
	muted           bool
	deadline        time.Time
	pausedAt        time.Time

	// gen is bumped whenever a loop is cancelled. A loop only mutates state
	// while its generation is current.
	gen  uint64
	stop chan struct{}
}

// New creates an idle Scheduler. A nil clicker plays nothing, a nil router
// publishes nothing and a nil logger uses slog.Default().
func New(clicker Clicker, router *events.Router, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if clicker == nil {
		clicker = silentClicker{}
	}
	s := &Scheduler{
		clicker:         clicker,
		router:          router,
		logger:          logger,
		now:             time.Now,
		newTicker:       newTimeTicker,
		pollInterval:    DefaultPollInterval,
		state:           StateIdle,
		beat:            -1,
		bpm:             DefaultBPM,
		beatsPerMeasure: DefaultBeatsPerMeasure,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Period returns the beat interval for bpm.
func Period(bpm int) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Minute / time.Duration(bpm)
}

// Start begins a fresh count from beat 0 of measure 0. It is valid from any
// state; calling it while playing restarts the count.
func (s *Scheduler) Start() {
	s.clicker.EnsureUnlocked()

	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	from := s.state
	s.cancelLoopLocked()
	now := s.now()
	s.beat = 0
	s.measure = 0
	s.played = 1
	s.run++
	s.deadline = now.Add(Period(s.bpm))
	s.pausedAt = time.Time{}
	s.state = StatePlaying
	muted := s.muted
	s.startLoopLocked()
	s.mu.Unlock()

	if !muted {
		s.clicker.PlayClick(true)
	}
	s.logger.Info("metronome started", "from", from, "bpm", s.BPM())
	s.emitState(from, StatePlaying, "start", now)
	s.emit(&events.BeatEvent{
		BaseEvent: events.NewMetronomeEvent(events.EventBeat, now),
		Beat:      0,
		Measure:   0,
		Accented:  true,
		Muted:     muted,
	})
}

// Pause freezes the count. It only has an effect while playing.
func (s *Scheduler) Pause() {
	s.pause("pause")
}

// HostHidden pauses a playing scheduler because its host went to the
// background. It never resumes on its own.
func (s *Scheduler) HostHidden() {
	s.pause("host hidden")
}

func (s *Scheduler) pause(reason string) {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	if s.state != StatePlaying {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug("pause ignored", "state", state, "reason", reason)
		return
	}
	s.cancelLoopLocked()
	now := s.now()
	s.pausedAt = now
	s.state = StatePaused
	beat, measure := s.beat, s.measure
	s.mu.Unlock()

	s.logger.Info("metronome paused", "reason", reason, "beat", beat, "measure", measure)
	s.emitState(StatePlaying, StatePaused, reason, now)
}

// Resume continues a paused count, shifting the next deadline by the time
// spent paused so the partially elapsed beat is neither lost nor repeated.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.state != StatePaused {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug("resume ignored", "state", state)
		return
	}
	s.mu.Unlock()

	s.clicker.EnsureUnlocked()

	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	// Another caller may have changed state while the clicker was unlocking.
	if s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	now := s.now()
	s.deadline = s.deadline.Add(now.Sub(s.pausedAt))
	s.pausedAt = time.Time{}
	s.state = StatePlaying
	s.startLoopLocked()
	s.mu.Unlock()

	s.logger.Info("metronome resumed")
	s.emitState(StatePaused, StatePlaying, "resume", now)
}

// Reset stops the loop and returns to idle with beat -1 and measure 0.
func (s *Scheduler) Reset() {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	from := s.state
	s.cancelLoopLocked()
	s.state = StateIdle
	s.beat = -1
	s.measure = 0
	s.played = 0
	s.pausedAt = time.Time{}
	now := s.now()
	s.mu.Unlock()

	if from == StateIdle {
		return
	}
	s.logger.Info("metronome reset", "from", from)
	s.emitState(from, StateIdle, "reset", now)
}

// SetBPM changes the tempo. While playing, the fraction of the current beat
// still remaining is carried over to the new period. While paused the same
// rescale is applied relative to the pause instant.
func (s *Scheduler) SetBPM(bpm int) {
	if bpm <= 0 {
		s.logger.Debug("ignoring non-positive bpm", "bpm", bpm)
		return
	}

	s.mu.Lock()
	old := s.bpm
	if old == bpm {
		s.mu.Unlock()
		return
	}
	s.bpm = bpm
	switch s.state {
	case StatePlaying:
		s.deadline = rescale(s.now(), s.deadline, Period(old), Period(bpm))
	case StatePaused:
		s.deadline = rescale(s.pausedAt, s.deadline, Period(old), Period(bpm))
	}
	now := s.now()
	s.mu.Unlock()

	s.logger.Info("tempo changed", "from", old, "to", bpm)
	s.emit(&events.TempoChangedEvent{
		BaseEvent: events.NewMetronomeEvent(events.EventTempoChanged, now),
		From:      old,
		To:        bpm,
	})
}

// rescale keeps the remaining fraction of the beat when the period changes.
func rescale(at, deadline time.Time, oldPeriod, newPeriod time.Duration) time.Time {
	frac := float64(deadline.Sub(at)) / float64(oldPeriod)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return at.Add(time.Duration(frac * float64(newPeriod)))
}

// SetBeatsPerMeasure changes the measure length. It applies on the next tick.
func (s *Scheduler) SetBeatsPerMeasure(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.beatsPerMeasure = n
	s.mu.Unlock()
}

// SetMuted suppresses or restores clicks.
func (s *Scheduler) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// Snapshot returns the current state, beat and measure.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:   s.state,
		Beat:    s.beat,
		Measure: s.measure,
		Played:  s.played,
		Run:     s.run,
	}
}

// State returns the current play state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BPM returns the current tempo.
func (s *Scheduler) BPM() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// BeatsPerMeasure returns the current measure length.
func (s *Scheduler) BeatsPerMeasure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beatsPerMeasure
}

// Muted reports whether clicks are suppressed.
func (s *Scheduler) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// startLoopLocked launches a poll loop for the current generation.
// Caller must hold s.mu.
func (s *Scheduler) startLoopLocked() {
	stop := make(chan struct{})
	s.stop = stop
	go s.loop(s.gen, s.newTicker(s.pollInterval), stop)
}

// cancelLoopLocked invalidates the running loop. Caller must hold s.mu.
// Once it returns, no tick from the old loop can change state.
func (s *Scheduler) cancelLoopLocked() {
	s.gen++
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *Scheduler) loop(gen uint64, ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.tick(gen)
		}
	}
}

// poll runs one tick for the current generation.
func (s *Scheduler) poll() bool {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.tick(gen)
}

// tick consumes at most one beat boundary. It reports whether a beat fired.
func (s *Scheduler) tick(gen uint64) bool {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	s.mu.Lock()
	if gen != s.gen || s.state != StatePlaying {
		s.mu.Unlock()
		return false
	}
	now := s.now()
	if now.Before(s.deadline) {
		s.mu.Unlock()
		return false
	}

	s.beat++
	if s.beat >= s.beatsPerMeasure {
		s.beat = 0
		s.measure++
	}
	s.played++

	period := Period(s.bpm)
	s.deadline = s.deadline.Add(period)
	if s.deadline.Before(now) {
		// Skip the missed beats rather than firing them back to back.
		s.logger.Debug("beat deadline resynced after stall", "behind", now.Sub(s.deadline))
		s.deadline = now.Add(period)
	}

	beat, measure, muted := s.beat, s.measure, s.muted
	s.mu.Unlock()

	accented := beat == 0
	if !muted {
		s.clicker.PlayClick(accented)
	}
	s.emit(&events.BeatEvent{
		BaseEvent: events.NewMetronomeEvent(events.EventBeat, now),
		Beat:      beat,
		Measure:   measure,
		Accented:  accented,
		Muted:     muted,
	})
	return true
}

func (s *Scheduler) emitState(from, to State, reason string, at time.Time) {
	s.emit(&events.StateChangedEvent{
		BaseEvent: events.NewMetronomeEvent(events.EventStateChanged, at),
		From:      string(from),
		To:        string(to),
		Reason:    reason,
	})
}

func (s *Scheduler) emit(event events.Event) {
	if s.router != nil {
		s.router.Emit(event)
	}
}

type silentClicker struct{}

func (silentClicker) PlayClick(bool)  {}
func (silentClicker) EnsureUnlocked() {}
