// Package scroll derives a continuous lane position from the scheduler's
// discrete beat state so the display can move smoothly between beats.
package scroll

import (
	"math"
	"time"

	"github.com/npratt/gimme/internal/metronome"
)

// Layout describes the lane geometry in display units (pixels, cells).
type Layout struct {
	UnitsPerBeat  float64
	NowPostOffset float64 // distance of the "now" post from the left edge
}

// DefaultLayout suits a terminal lane measured in cells.
var DefaultLayout = Layout{UnitsPerBeat: 8, NowPostOffset: 6}

// Model tracks the anchor of the last observed beat change. It is owned by
// a single frame loop and is not safe for concurrent use.
type Model struct {
	layout Layout

	state     metronome.State
	hasAnchor bool
	anchor    time.Time
	beat      int
	measure   int
	run       int
	sampledAt time.Time // time of the last playing sample
	pausedAt  time.Time
	offset    float64
}

// New creates a Model. A non-positive UnitsPerBeat falls back to
// DefaultLayout.UnitsPerBeat.
func New(layout Layout) *Model {
	if layout.UnitsPerBeat <= 0 {
		layout.UnitsPerBeat = DefaultLayout.UnitsPerBeat
	}
	return &Model{layout: layout, state: metronome.StateIdle}
}

// Layout returns the lane geometry.
func (m *Model) Layout() Layout {
	return m.layout
}

// Offset returns the last sampled offset.
func (m *Model) Offset() float64 {
	return m.offset
}

// Sample returns the scroll offset for a frame drawn at now. The offset
// advances while playing, holds while paused and is zero while idle.
func (m *Model) Sample(snap metronome.Snapshot, bpm, beatsPerMeasure int, now time.Time) float64 {
	switch snap.State {
	case metronome.StateIdle:
		*m = Model{layout: m.layout, state: metronome.StateIdle}
		return 0
	case metronome.StatePaused:
		if m.state == metronome.StatePlaying {
			m.pausedAt = m.sampledAt
		}
		m.state = metronome.StatePaused
		return m.offset
	}

	if m.state == metronome.StatePaused && m.hasAnchor && !m.pausedAt.IsZero() {
		m.anchor = m.anchor.Add(now.Sub(m.pausedAt))
	}
	m.state = metronome.StatePlaying

	// A restart can land on the beat already observed, so the run counter
	// is part of the edge.
	if !m.hasAnchor || snap.Beat != m.beat || snap.Measure != m.measure || snap.Run != m.run {
		m.anchor = now
		m.beat = snap.Beat
		m.measure = snap.Measure
		m.run = snap.Run
		m.hasAnchor = true
	}

	frac := 0.0
	if period := metronome.Period(bpm); period > 0 {
		frac = math.Min(float64(now.Sub(m.anchor))/float64(period), 1)
	}
	global := snap.Measure*beatsPerMeasure + snap.Beat
	m.offset = (float64(global) + frac) * m.layout.UnitsPerBeat
	m.sampledAt = now
	return m.offset
}

// UnitsPerMeasure returns the lane width of one measure.
func (m *Model) UnitsPerMeasure(beatsPerMeasure int) float64 {
	return m.layout.UnitsPerBeat * float64(beatsPerMeasure)
}

// MeasureX returns the lane position of the start of measure index.
func (m *Model) MeasureX(index, beatsPerMeasure int) float64 {
	return float64(index) * m.UnitsPerMeasure(beatsPerMeasure)
}

// ScreenX converts a lane position to a viewport position for offset.
func (m *Model) ScreenX(laneX, offset float64) float64 {
	return laneX - offset + m.layout.NowPostOffset
}

// VisibleMeasures returns the first and last measure indices that intersect
// a viewport of the given width at offset.
func (m *Model) VisibleMeasures(offset, width float64, beatsPerMeasure int) (first, last int) {
	upm := m.UnitsPerMeasure(beatsPerMeasure)
	if upm <= 0 {
		return 0, 0
	}
	left := offset - m.layout.NowPostOffset
	right := offset + width
	first = int(math.Max(0, math.Floor(left/upm)))
	last = int(math.Ceil(right / upm))
	return first, last
}
