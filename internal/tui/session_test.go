package tui

import (
	"fmt"
	"sync"

	"github.com/npratt/gimme/internal/config"
	"github.com/npratt/gimme/internal/exercise"
	"github.com/npratt/gimme/internal/metronome"
	"github.com/npratt/gimme/internal/theory"
)

// fakeSession is a Session that records calls and serves fixed measures.
type fakeSession struct {
	mu       sync.Mutex
	snap     metronome.Snapshot
	settings config.Practice
	measures map[int]exercise.Measure
	calls    []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		snap: metronome.Snapshot{State: metronome.StateIdle},
		settings: config.Practice{
			BPM:              80,
			Pattern:          exercise.DefaultPattern(),
			MeasuresPerChord: 2,
		},
		measures: make(map[int]exercise.Measure),
	}
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeSession) setState(state metronome.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.State = state
}

func (f *fakeSession) Toggle()     { f.record("toggle") }
func (f *fakeSession) Start()      { f.record("start") }
func (f *fakeSession) Reset()      { f.record("reset") }
func (f *fakeSession) HostHidden() { f.record("hidden") }
func (f *fakeSession) ToggleMute() { f.record("mute") }

func (f *fakeSession) AdjustBPM(delta int) {
	f.record(fmt.Sprintf("bpm%+d", delta))
}

func (f *fakeSession) Snapshot() metronome.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Settings() config.Practice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *fakeSession) MeasureData(index int) (exercise.Measure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.measures[index]
	if !ok {
		return exercise.Measure{}, fmt.Errorf("no measure %d", index)
	}
	return m, nil
}

func (f *fakeSession) CycleFor(index int) (exercise.Cycle, bool, error) {
	triad, err := theory.NewTriad("C", theory.Major)
	if err != nil {
		return exercise.Cycle{}, false, err
	}
	return exercise.Cycle{Triad: triad, Length: 2}, true, nil
}
