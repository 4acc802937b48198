// Package events defines the event taxonomy published by the metronome and
// practice controller, and the channel-based router that carries it to
// observers such as the TUI and the log sink.
package events

import "time"

// EventType identifies the category and nature of an event.
type EventType string

// Event types.
const (
	// Metronome events
	EventBeat         EventType = "metronome.beat"
	EventStateChanged EventType = "metronome.state_changed"
	EventTempoChanged EventType = "metronome.tempo_changed"

	// Session events
	EventSessionStart EventType = "session.start"
	EventSessionStop  EventType = "session.stop"

	// Settings events
	EventSettingsChanged EventType = "settings.changed"

	// Error events
	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceMetronome  = "metronome"
	SourceController = "controller"
	SourceSettings   = "settings"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// BeatEvent is emitted once per crossed beat boundary, including the beat
// fired synchronously by a start.
type BeatEvent struct {
	BaseEvent
	Beat     int  `json:"beat"`
	Measure  int  `json:"measure"`
	Accented bool `json:"accented"`
	Muted    bool `json:"muted,omitempty"`
}

// StateChangedEvent is emitted when the metronome moves between idle,
// playing and paused.
type StateChangedEvent struct {
	BaseEvent
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// TempoChangedEvent is emitted when the BPM changes.
type TempoChangedEvent struct {
	BaseEvent
	From int `json:"from"`
	To   int `json:"to"`
}

// SessionStartEvent is emitted when a fresh practice session begins.
type SessionStartEvent struct {
	BaseEvent
	RunID            string   `json:"run_id"`
	BPM              int      `json:"bpm"`
	Pattern          []string `json:"pattern"`
	MeasuresPerChord int      `json:"measures_per_chord"`
}

// SessionStopEvent is emitted when a session is reset back to idle.
type SessionStopEvent struct {
	BaseEvent
	RunID    string `json:"run_id"`
	Beats    int    `json:"beats"`
	Measures int    `json:"measures"`
}

// SettingsChangedEvent is emitted after practice settings are applied.
type SettingsChangedEvent struct {
	BaseEvent
	Fields       []string `json:"fields"`
	CacheCleared bool     `json:"cache_cleared"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent is emitted for any error condition.
type ErrorEvent struct {
	BaseEvent
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewMetronomeEvent creates a BaseEvent with the metronome as the source.
func NewMetronomeEvent(eventType EventType, at time.Time) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      at,
		Src:       SourceMetronome,
	}
}

// NewControllerEvent creates a BaseEvent with the controller as the source.
func NewControllerEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceController)
}
