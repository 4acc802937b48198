package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/gimme/internal/events"
	"github.com/npratt/gimme/internal/scroll"
)

// model is the bubbletea model for the TUI.
type model struct {
	// Collaborators
	session   Session
	eventChan <-chan events.Event
	scroll    *scroll.Model
	now       func() time.Time
	onQuit    func()

	// Settings
	keys          keyMap
	help          help.Model
	frameInterval time.Duration
	pauseOnBlur   bool

	// Frame loop. A frame is honored only if it carries the current
	// generation; bumping frameGen cancels the pending one.
	frameGen int
	framing  bool
	offset   float64

	// Display
	width     int
	height    int
	lastEvent string
	lastError bool
	blurred   bool
}

// newModel creates a model from the TUI settings.
func newModel(t *TUI) model {
	fps := t.frameRate
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	now := t.now
	if now == nil {
		now = time.Now
	}
	return model{
		session:       t.session,
		eventChan:     t.eventChan,
		scroll:        scroll.New(t.layout),
		now:           now,
		onQuit:        t.onQuit,
		keys:          defaultKeys,
		help:          help.New(),
		frameInterval: time.Second / time.Duration(fps),
		pauseOnBlur:   t.pauseOnBlur,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return waitForEvent(m.eventChan)
}
