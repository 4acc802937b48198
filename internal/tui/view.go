package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/gimme/internal/exercise"
	"github.com/npratt/gimme/internal/metronome"
	"github.com/npratt/gimme/internal/scroll"
)

const (
	minWidth  = 40
	minHeight = 10

	restMark = '-'
	barMark  = '|'
	beatMark = '.'
	postMark = '^'
)

// measureSource resolves measure content for the lane.
type measureSource interface {
	MeasureData(index int) (exercise.Measure, error)
}

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	inner := safeWidth(m.width - 4)
	settings := m.session.Settings()
	staff := renderStaff(m.session, m.scroll, m.offset, inner, len(settings.Pattern))

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderBeats(len(settings.Pattern)))
	sections = append(sections, m.renderDivider(inner))
	sections = append(sections, styles.Labels.Render(staff[0]))
	sections = append(sections, styles.Grid.Render(staff[1]))
	sections = append(sections, styles.NowPost.Render(staff[2]))
	sections = append(sections, m.renderDivider(inner))
	sections = append(sections, m.renderFooter())

	rendered := styles.Container.
		Width(safeWidth(m.width - 2)).
		Render(strings.Join(sections, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderHeader shows the state, tempo, mute flag and current chord.
func (m model) renderHeader() string {
	snap := m.session.Snapshot()
	settings := m.session.Settings()

	parts := []string{
		styles.Title.Render("gimme"),
		statusStyle(snap.State).Render(strings.ToUpper(string(snap.State))),
		styles.BPM.Render(fmt.Sprintf("%d bpm", settings.BPM)),
	}
	if settings.Muted {
		parts = append(parts, styles.Muted.Render("muted"))
	}
	if chord := m.currentChord(snap); chord != "" {
		parts = append(parts, styles.Chord.Render(chord))
	}
	if m.blurred {
		parts = append(parts, styles.Muted.Render("(unfocused)"))
	}
	return strings.Join(parts, "  ")
}

// currentChord names the chord under the now-post.
func (m model) currentChord(snap metronome.Snapshot) string {
	if snap.State == metronome.StateIdle {
		return ""
	}
	cycle, ok, err := m.session.CycleFor(snap.Measure)
	if err != nil {
		return ""
	}
	if !ok {
		return "count-in"
	}
	return fmt.Sprintf("%s %s", cycle.Triad.Root, cycle.Triad.Quality)
}

// renderBeats draws one dot per beat, lighting the current one.
func (m model) renderBeats(beatsPerMeasure int) string {
	snap := m.session.Snapshot()
	dots := make([]string, beatsPerMeasure)
	for b := range dots {
		lit := snap.State != metronome.StateIdle && b == snap.Beat
		switch {
		case lit && b == 0:
			dots[b] = styles.BeatAccent.Render("●")
		case lit:
			dots[b] = styles.BeatOn.Render("●")
		default:
			dots[b] = styles.BeatOff.Render("○")
		}
	}
	return strings.Join(dots, " ")
}

func (m model) renderDivider(width int) string {
	return styles.Divider.Render(strings.Repeat("─", width))
}

// renderFooter shows the last notable event above the key help.
func (m model) renderFooter() string {
	var lines []string
	if m.lastEvent != "" {
		style := styles.Event
		if m.lastError {
			style = styles.Error
		}
		lines = append(lines, style.Render(m.lastEvent))
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

func (m model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small (%dx%d)\nMinimum: %dx%d", m.width, m.height, minWidth, minHeight)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}

// renderStaff lays out the visible measures as three rows of width cells:
// beat labels, bar and beat marks, and the now-post. Measures that fail to
// resolve are left blank.
func renderStaff(src measureSource, sc *scroll.Model, offset float64, width, beatsPerMeasure int) [3]string {
	var rows [3][]rune
	for i := range rows {
		rows[i] = []rune(strings.Repeat(" ", width))
	}

	unitsPerBeat := sc.Layout().UnitsPerBeat
	first, last := sc.VisibleMeasures(offset, float64(width), beatsPerMeasure)
	for index := first; index <= last; index++ {
		measure, err := src.MeasureData(index)
		if err != nil {
			continue
		}
		start := sc.MeasureX(index, beatsPerMeasure)
		for b, beat := range measure.Beats {
			col := column(sc.ScreenX(start+float64(b)*unitsPerBeat, offset))
			mark := beatMark
			if b == 0 {
				mark = barMark
			}
			put(rows[1], col, string(mark))
			if beat.IsRest {
				put(rows[0], col, string(restMark))
			} else {
				put(rows[0], col, beat.Label)
			}
		}
	}
	put(rows[2], column(sc.Layout().NowPostOffset), string(postMark))

	return [3]string{string(rows[0]), string(rows[1]), string(rows[2])}
}

// column rounds a viewport position to a cell.
func column(x float64) int {
	return int(math.Round(x))
}

// put writes text into row starting at col, clipping at both edges.
func put(row []rune, col int, text string) {
	for i, r := range []rune(text) {
		c := col + i
		if c < 0 || c >= len(row) {
			continue
		}
		row[c] = r
	}
}

func statusStyle(state metronome.State) lipgloss.Style {
	switch state {
	case metronome.StatePlaying:
		return styles.StatusPlaying
	case metronome.StatePaused:
		return styles.StatusPaused
	default:
		return styles.StatusIdle
	}
}

// safeWidth ensures width is at least 1 to prevent rendering issues.
func safeWidth(w int) int {
	if w < 1 {
		return 1
	}
	return w
}
