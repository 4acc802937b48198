// Package tui provides the terminal practice screen using bubbletea: a
// header, beat indicators and a lane of chord labels scrolling past a fixed
// now-post.
package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/gimme/internal/config"
	"github.com/npratt/gimme/internal/events"
	"github.com/npratt/gimme/internal/exercise"
	"github.com/npratt/gimme/internal/metronome"
	"github.com/npratt/gimme/internal/scroll"
)

// DefaultFrameRate is used when no positive frame rate is configured.
const DefaultFrameRate = 30

// Session is the practice session driven by the screen.
type Session interface {
	Toggle()
	Start()
	Reset()
	HostHidden()
	AdjustBPM(delta int)
	ToggleMute()
	Snapshot() metronome.Snapshot
	Settings() config.Practice
	MeasureData(index int) (exercise.Measure, error)
	CycleFor(index int) (exercise.Cycle, bool, error)
}

// TUI is the terminal practice screen.
type TUI struct {
	session     Session
	eventChan   <-chan events.Event
	layout      scroll.Layout
	frameRate   int
	pauseOnBlur bool
	onQuit      func()
	now         func() time.Time
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a TUI for session. eventChan wakes the screen on router
// events; it may be nil.
func New(session Session, eventChan <-chan events.Event, opts ...Option) *TUI {
	t := &TUI{
		session:     session,
		eventChan:   eventChan,
		layout:      scroll.DefaultLayout,
		frameRate:   DefaultFrameRate,
		pauseOnBlur: true,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithLayout sets the lane geometry in terminal cells.
func WithLayout(layout scroll.Layout) Option {
	return func(t *TUI) {
		t.layout = layout
	}
}

// WithFrameRate sets the redraw rate while playing.
func WithFrameRate(fps int) Option {
	return func(t *TUI) {
		if fps > 0 {
			t.frameRate = fps
		}
	}
}

// WithPauseOnBlur controls whether losing terminal focus pauses playback.
func WithPauseOnBlur(enabled bool) Option {
	return func(t *TUI) {
		t.pauseOnBlur = enabled
	}
}

// WithOnQuit sets the callback invoked when the user quits.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithClock sets the time source used to sample the lane position. It must
// match the scheduler's clock.
func WithClock(now func() time.Time) Option {
	return func(t *TUI) {
		if now != nil {
			t.now = now
		}
	}
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	m := newModel(t)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
