package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/gimme/internal/events"
	"github.com/npratt/gimme/internal/metronome"
)

// eventMsg wraps a router event for delivery to Update.
type eventMsg events.Event

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// frameMsg requests a redraw. Frames from an older generation are dropped.
type frameMsg struct {
	gen int
}

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(event)
	}
}

// doFrame schedules the next frame of generation gen.
func doFrame(gen int, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return frameMsg{gen: gen}
	})
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.BlurMsg:
		m.blurred = true
		if m.pauseOnBlur {
			m.session.HostHidden()
		}
		return m, m.syncFrames()

	case tea.FocusMsg:
		m.blurred = false
		return m, nil

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, tea.Batch(m.syncFrames(), waitForEvent(m.eventChan))

	case channelClosedMsg:
		slog.Info("event channel closed, exiting TUI")
		m.stopFrames()
		return m, tea.Quit

	case frameMsg:
		if msg.gen != m.frameGen || !m.framing {
			return m, nil
		}
		m.sample()
		return m, doFrame(m.frameGen, m.frameInterval)
	}

	return m, nil
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopFrames()
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.session.Toggle()

	case key.Matches(msg, m.keys.Restart):
		m.session.Start()

	case key.Matches(msg, m.keys.Reset):
		m.session.Reset()

	case key.Matches(msg, m.keys.Faster):
		m.session.AdjustBPM(bpmStep)

	case key.Matches(msg, m.keys.Slower):
		m.session.AdjustBPM(-bpmStep)

	case key.Matches(msg, m.keys.Mute):
		m.session.ToggleMute()

	default:
		return m, nil
	}

	return m, m.syncFrames()
}

// handleEvent records the latest notable event for the footer. Beats only
// drive the frame loop.
func (m *model) handleEvent(event events.Event) {
	if event == nil {
		return
	}
	switch e := event.(type) {
	case *events.BeatEvent:
		return
	case *events.ErrorEvent:
		m.lastEvent = events.Format(e)
		m.lastError = true
	default:
		if text := events.Format(e); text != "" {
			m.lastEvent = text
			m.lastError = false
		}
	}
}

// syncFrames starts the frame loop when playback is running and cancels it
// otherwise. The lane is sampled once either way so a pause or reset is
// drawn immediately.
func (m *model) syncFrames() tea.Cmd {
	playing := m.session.Snapshot().State == metronome.StatePlaying
	m.sample()
	switch {
	case playing && !m.framing:
		m.framing = true
		m.frameGen++
		return doFrame(m.frameGen, m.frameInterval)
	case !playing && m.framing:
		m.stopFrames()
	}
	return nil
}

// stopFrames invalidates any pending frame.
func (m *model) stopFrames() {
	m.framing = false
	m.frameGen++
}

// sample updates the lane offset from the session state.
func (m *model) sample() {
	settings := m.session.Settings()
	m.offset = m.scroll.Sample(m.session.Snapshot(), settings.BPM, len(settings.Pattern), m.now())
}
