// Package controller coordinates a practice session: it owns the beat
// scheduler and the exercise sequencer, applies settings changes to both and
// publishes session events to the router.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/npratt/gimme/internal/config"
	"github.com/npratt/gimme/internal/events"
	"github.com/npratt/gimme/internal/exercise"
	"github.com/npratt/gimme/internal/metronome"
)

// Controller drives one practice session at a time.
type Controller struct {
	sched  *metronome.Scheduler
	seq    *exercise.Sequencer
	router *events.Router
	logger *slog.Logger

	// applyMu makes each settings change a single read-modify-write, so
	// reloads and key presses cannot interleave. Acquired before mu.
	applyMu sync.Mutex

	mu       sync.Mutex
	settings config.Practice
	runID    string
	stats    Stats
}

// Stats summarizes the practice done since the controller was created.
type Stats struct {
	RunID    string // current or last session
	Sessions int
	Beats    int // completed sessions plus the running one
	Measures int
}

// New builds the scheduler and sequencer from cfg. Extra metronome options
// are applied after the ones derived from cfg.
func New(cfg *config.Config, clicker metronome.Clicker, router *events.Router, logger *slog.Logger, opts ...metronome.Option) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	practice := cfg.Practice()
	if err := practice.Validate(); err != nil {
		return nil, err
	}

	seqOpts := []exercise.Option{
		exercise.WithLeadIn(practice.LeadIn),
		exercise.WithRestMeasures(practice.RestMeasures),
		exercise.WithAttempts(practice.Attempts),
		exercise.WithLogger(logger),
	}
	if seed := cfg.Exercise.Seed; seed != 0 {
		seqOpts = append(seqOpts, exercise.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	seq, err := exercise.New(practice.Pattern, practice.MeasuresPerChord, seqOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sequencer: %w", err)
	}

	schedOpts := append([]metronome.Option{
		metronome.WithBPM(practice.BPM),
		metronome.WithBeatsPerMeasure(len(practice.Pattern)),
		metronome.WithMuted(practice.Muted),
		metronome.WithPollInterval(cfg.Metronome.PollInterval),
	}, opts...)

	return &Controller{
		sched:    metronome.New(clicker, router, logger, schedOpts...),
		seq:      seq,
		router:   router,
		logger:   logger,
		settings: practice,
	}, nil
}

// Start begins a fresh session with new exercise content. Starting while a
// session is running ends that session first.
func (c *Controller) Start() {
	c.finishSession("restart")
	c.seq.ClearCache()

	runID := uuid.NewString()
	c.mu.Lock()
	c.runID = runID
	c.stats.RunID = runID
	c.stats.Sessions++
	settings := c.settings
	c.mu.Unlock()

	c.sched.Start()
	c.logger.Info("session started", "run_id", runID, "bpm", settings.BPM, "pattern", settings.Pattern.String())
	c.emit(&events.SessionStartEvent{
		BaseEvent:        events.NewControllerEvent(events.EventSessionStart),
		RunID:            runID,
		BPM:              settings.BPM,
		Pattern:          settings.Pattern.Strings(),
		MeasuresPerChord: settings.MeasuresPerChord,
	})
}

// Pause freezes a playing session.
func (c *Controller) Pause() {
	c.sched.Pause()
}

// Resume continues a paused session.
func (c *Controller) Resume() {
	c.sched.Resume()
}

// HostHidden pauses a playing session because the display lost focus.
func (c *Controller) HostHidden() {
	c.sched.HostHidden()
}

// Reset ends the session and returns to idle. Exercise content is kept so
// the last chords stay on screen until the next start.
func (c *Controller) Reset() {
	c.finishSession("reset")
	c.sched.Reset()
}

// Toggle starts from idle, pauses while playing and resumes while paused.
func (c *Controller) Toggle() {
	switch c.sched.State() {
	case metronome.StateIdle:
		c.Start()
	case metronome.StatePlaying:
		c.Pause()
	case metronome.StatePaused:
		c.Resume()
	}
}

// finishSession records stats for a running session and emits its stop
// event. It does nothing when idle.
func (c *Controller) finishSession(reason string) {
	snap := c.sched.Snapshot()
	if snap.State == metronome.StateIdle {
		return
	}
	c.mu.Lock()
	runID := c.runID
	c.runID = ""
	c.stats.Beats += snap.Played
	c.stats.Measures += snap.Measure + 1
	c.mu.Unlock()

	c.logger.Info("session stopped", "run_id", runID, "reason", reason, "beats", snap.Played)
	c.emit(&events.SessionStopEvent{
		BaseEvent: events.NewControllerEvent(events.EventSessionStop),
		RunID:     runID,
		Beats:     snap.Played,
		Measures:  snap.Measure + 1,
	})
}

// Apply validates and applies new practice settings. Structural changes made
// outside idle regenerate the exercise.
func (c *Controller) Apply(next config.Practice) error {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	return c.applyLocked(next)
}

// update applies a change derived from the current settings.
func (c *Controller) update(change func(*config.Practice)) error {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	next := c.Settings()
	change(&next)
	return c.applyLocked(next)
}

// applyLocked does the work of Apply. Caller must hold c.applyMu.
func (c *Controller) applyLocked(next config.Practice) error {
	if err := next.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	prev := c.settings
	c.mu.Unlock()

	changed := prev.Changed(next)
	if len(changed) == 0 {
		return nil
	}

	if next.BPM != prev.BPM {
		c.sched.SetBPM(next.BPM)
	}
	if next.Muted != prev.Muted {
		c.sched.SetMuted(next.Muted)
	}
	if !next.Pattern.Equal(prev.Pattern) {
		if err := c.seq.SetPattern(next.Pattern); err != nil {
			return fmt.Errorf("apply pattern: %w", err)
		}
		c.sched.SetBeatsPerMeasure(len(next.Pattern))
	}
	if next.MeasuresPerChord != prev.MeasuresPerChord {
		if err := c.seq.SetMeasuresPerChord(next.MeasuresPerChord); err != nil {
			return fmt.Errorf("apply measures per chord: %w", err)
		}
	}
	if next.RestMeasures != prev.RestMeasures {
		if err := c.seq.SetRestMeasures(next.RestMeasures); err != nil {
			return fmt.Errorf("apply rest measures: %w", err)
		}
	}
	if next.Attempts != prev.Attempts {
		if err := c.seq.SetAttempts(next.Attempts); err != nil {
			return fmt.Errorf("apply attempts: %w", err)
		}
	}
	if next.LeadIn != prev.LeadIn {
		if err := c.seq.SetLeadIn(next.LeadIn); err != nil {
			return fmt.Errorf("apply lead-in: %w", err)
		}
	}

	cleared := false
	if prev.Structural(next) && c.sched.State() != metronome.StateIdle {
		c.seq.ClearCache()
		cleared = true
	}

	next.Pattern = next.Pattern.Clone()
	c.mu.Lock()
	c.settings = next
	c.mu.Unlock()

	c.logger.Info("settings applied", "fields", changed, "cache_cleared", cleared)
	c.emit(&events.SettingsChangedEvent{
		BaseEvent:    events.NewEvent(events.EventSettingsChanged, events.SourceSettings),
		Fields:       changed,
		CacheCleared: cleared,
	})
	return nil
}

// ApplyConfig applies the practice settings of a reloaded config. Errors
// are logged and published instead of returned.
func (c *Controller) ApplyConfig(cfg *config.Config) {
	if err := c.Apply(cfg.Practice()); err != nil {
		c.logger.Warn("ignoring reloaded settings", "error", err)
		c.emit(&events.ErrorEvent{
			BaseEvent: events.NewControllerEvent(events.EventError),
			Message:   err.Error(),
			Severity:  events.SeverityWarning,
		})
	}
}

// AdjustBPM changes the tempo by delta, clamped to the allowed range.
func (c *Controller) AdjustBPM(delta int) {
	err := c.update(func(p *config.Practice) {
		p.BPM = min(max(p.BPM+delta, config.MinBPM), config.MaxBPM)
	})
	if err != nil {
		c.logger.Warn("bpm change rejected", "error", err)
	}
}

// ToggleMute flips the mute setting.
func (c *Controller) ToggleMute() {
	if err := c.update(func(p *config.Practice) { p.Muted = !p.Muted }); err != nil {
		c.logger.Warn("mute change rejected", "error", err)
	}
}

// Snapshot returns the scheduler state.
func (c *Controller) Snapshot() metronome.Snapshot {
	return c.sched.Snapshot()
}

// BPM returns the current tempo.
func (c *Controller) BPM() int {
	return c.sched.BPM()
}

// Settings returns a copy of the current practice settings.
func (c *Controller) Settings() config.Practice {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.settings
	s.Pattern = s.Pattern.Clone()
	return s
}

// MeasureData returns the exercise content of measure index.
func (c *Controller) MeasureData(index int) (exercise.Measure, error) {
	return c.seq.MeasureData(index)
}

// CycleFor returns the chord cycle covering measure index.
func (c *Controller) CycleFor(index int) (exercise.Cycle, bool, error) {
	return c.seq.CycleFor(index)
}

// Stats returns practice statistics, including the running session.
func (c *Controller) Stats() Stats {
	snap := c.sched.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	if snap.State != metronome.StateIdle {
		s.Beats += snap.Played
		s.Measures += snap.Measure + 1
	}
	return s
}

// Run starts a session and writes one line per beat to out until ctx is
// cancelled, then resets. It is the non-interactive front end.
func (c *Controller) Run(ctx context.Context, out io.Writer) error {
	if c.router == nil {
		return errors.New("run requires an event router")
	}
	ch := c.router.Subscribe()
	defer c.router.Unsubscribe(ch)

	c.Start()
	defer c.Reset()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			line := c.describe(event)
			if line == "" {
				continue
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				return fmt.Errorf("write beat: %w", err)
			}
		}
	}
}

// describe formats an event for headless output, adding the exercise label
// to beat events.
func (c *Controller) describe(event events.Event) string {
	text := events.Format(event)
	be, ok := event.(*events.BeatEvent)
	if !ok {
		return text
	}
	m, err := c.seq.MeasureData(be.Measure)
	if err != nil || be.Beat >= len(m.Beats) {
		return text
	}
	beat := m.Beats[be.Beat]
	if beat.IsRest {
		return text + "  (rest)"
	}
	return text + "  " + beat.Label
}

// emit sends an event to the router if available.
func (c *Controller) emit(event events.Event) {
	if c.router != nil {
		c.router.Emit(event)
	}
}
