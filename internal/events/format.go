package events

import (
	"fmt"
	"strings"
)

// Format converts an event to a human-readable line for headless output.
// Returns empty string for nil or unknown event types.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case *BeatEvent:
		return formatBeat(e)
	case *StateChangedEvent:
		if e.Reason != "" {
			return fmt.Sprintf("%s -> %s (%s)", e.From, e.To, e.Reason)
		}
		return fmt.Sprintf("%s -> %s", e.From, e.To)
	case *TempoChangedEvent:
		return fmt.Sprintf("tempo %d -> %d bpm", e.From, e.To)
	case *SessionStartEvent:
		return fmt.Sprintf("session start: %d bpm, pattern [%s], %d measure(s) per chord",
			e.BPM, strings.Join(e.Pattern, " "), e.MeasuresPerChord)
	case *SessionStopEvent:
		return fmt.Sprintf("session stop: %d beats, %d measures", e.Beats, e.Measures)
	case *SettingsChangedEvent:
		if len(e.Fields) == 0 {
			return ""
		}
		line := "settings: " + strings.Join(e.Fields, ", ")
		if e.CacheCleared {
			line += " (exercise regenerated)"
		}
		return line
	case *ErrorEvent:
		return fmt.Sprintf("%s: %s", e.Severity, e.Message)
	default:
		return ""
	}
}

// FormatWithTimestamp formats an event with a clock-time prefix.
func FormatWithTimestamp(event Event) string {
	text := Format(event)
	if text == "" {
		return ""
	}
	return fmt.Sprintf("[%s] %s", event.Timestamp().Format("15:04:05.000"), text)
}

func formatBeat(e *BeatEvent) string {
	// 1-based for musicians: measure 1, beat 1
	marker := "tick"
	if e.Accented {
		marker = "TICK"
	}
	if e.Muted {
		marker = "(" + marker + ")"
	}
	return fmt.Sprintf("%d.%d %s", e.Measure+1, e.Beat+1, marker)
}
