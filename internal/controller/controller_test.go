package controller

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/npratt/gimme/internal/config"
	"github.com/npratt/gimme/internal/events"
	"github.com/npratt/gimme/internal/exercise"
	"github.com/npratt/gimme/internal/metronome"
	"github.com/npratt/gimme/internal/testutil"
)

// testConfig returns a config with a fixed seed and fast tempo.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Metronome.BPM = 120
	cfg.Exercise.Seed = 7
	return cfg
}

type fixture struct {
	c       *Controller
	clock   *testutil.FakeClock
	clicks  *testutil.ClickRecorder
	tickers *testutil.TickerFactory
}

func newFixture(t *testing.T, cfg *config.Config, router *events.Router) *fixture {
	t.Helper()
	f := &fixture{
		clock:   testutil.NewFakeClock(),
		clicks:  &testutil.ClickRecorder{},
		tickers: &testutil.TickerFactory{},
	}
	c, err := New(cfg, f.clicks, router, nil,
		metronome.WithClock(f.clock.Now),
		metronome.WithTicker(func(d time.Duration) metronome.Ticker { return f.tickers.New(d) }),
	)
	require.NoError(t, err)
	t.Cleanup(c.Reset)
	f.c = c
	return f
}

// beat advances the clock by one period and delivers a tick to the live loop.
func (f *fixture) beat(t *testing.T) {
	t.Helper()
	want := f.c.Snapshot().Played + 1
	f.clock.Advance(metronome.Period(f.c.BPM()))
	tickers := f.tickers.Tickers()
	require.True(t, tickers[len(tickers)-1].Tick(f.clock.Now()))
	require.Eventually(t, func() bool {
		return f.c.Snapshot().Played == want
	}, time.Second, time.Millisecond)
}

func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for len(ch) > 0 {
		out = append(out, <-ch)
	}
	return out
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Metronome.BPM = 5
	_, err := New(cfg, nil, nil, nil)
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestToggle(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	require.Equal(t, metronome.StateIdle, f.c.Snapshot().State)

	f.c.Toggle()
	require.Equal(t, metronome.StatePlaying, f.c.Snapshot().State)
	f.c.Toggle()
	require.Equal(t, metronome.StatePaused, f.c.Snapshot().State)
	f.c.Toggle()
	require.Equal(t, metronome.StatePlaying, f.c.Snapshot().State)

	f.c.HostHidden()
	require.Equal(t, metronome.StatePaused, f.c.Snapshot().State)

	f.c.Reset()
	require.Equal(t, metronome.StateIdle, f.c.Snapshot().State)
}

func TestStartClearsExerciseCache(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	f.c.Start()
	for i := 0; i < 4; i++ {
		_, err := f.c.MeasureData(i)
		require.NoError(t, err)
	}
	cycles, measures := f.c.seq.CacheLen()
	require.Equal(t, 2, cycles)
	require.Equal(t, 4, measures)

	// Reset keeps the content for the idle display.
	f.c.Reset()
	_, measures = f.c.seq.CacheLen()
	require.Equal(t, 4, measures)

	f.c.Start()
	cycles, measures = f.c.seq.CacheLen()
	require.Zero(t, cycles)
	require.Zero(t, measures)
}

func TestPauseResumeKeepsExercise(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.c.Start()
	before, err := f.c.MeasureData(0)
	require.NoError(t, err)

	f.c.Pause()
	f.c.Resume()
	after, err := f.c.MeasureData(0)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestApplyPatternWhilePlaying(t *testing.T) {
	router := events.NewRouter(64)
	defer router.Close()
	ch := router.Subscribe()

	f := newFixture(t, testConfig(), router)
	f.c.Start()
	_, err := f.c.MeasureData(0)
	require.NoError(t, err)
	drain(ch)

	next := f.c.Settings()
	next.Pattern = exercise.Pattern{exercise.SlotRoot, exercise.SlotFirst, exercise.SlotSecond, exercise.SlotRest, exercise.SlotRandom}
	require.NoError(t, f.c.Apply(next))

	m, err := f.c.MeasureData(0)
	require.NoError(t, err)
	require.Len(t, m.Beats, 5)
	require.Equal(t, 5, f.c.sched.BeatsPerMeasure())

	var settings *events.SettingsChangedEvent
	for _, e := range drain(ch) {
		if s, ok := e.(*events.SettingsChangedEvent); ok {
			settings = s
		}
	}
	require.NotNil(t, settings)
	require.Equal(t, []string{"pattern"}, settings.Fields)
	require.True(t, settings.CacheCleared)
}

func TestApplyWhileIdleDoesNotClearCycles(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	_, err := f.c.MeasureData(0)
	require.NoError(t, err)

	next := f.c.Settings()
	next.Pattern = exercise.Pattern{exercise.SlotRandom}
	require.NoError(t, f.c.Apply(next))

	cycles, _ := f.c.seq.CacheLen()
	require.Equal(t, 1, cycles)
}

func TestApplyTempoAndMute(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.c.Start()

	next := f.c.Settings()
	next.BPM = 90
	next.Muted = true
	require.NoError(t, f.c.Apply(next))
	require.Equal(t, 90, f.c.BPM())
	require.True(t, f.c.sched.Muted())

	// Identical settings are a no-op.
	require.NoError(t, f.c.Apply(f.c.Settings()))
}

func TestApplyRejectsInvalid(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	next := f.c.Settings()
	next.MeasuresPerChord = 0
	require.Error(t, f.c.Apply(next))
	require.Equal(t, 2, f.c.Settings().MeasuresPerChord)
}

func TestApplyConfigPublishesErrors(t *testing.T) {
	router := events.NewRouter(16)
	defer router.Close()
	ch := router.Subscribe()

	f := newFixture(t, testConfig(), router)
	bad := testConfig()
	bad.Exercise.Pattern = nil
	f.c.ApplyConfig(bad)

	got := drain(ch)
	require.Len(t, got, 1)
	require.Equal(t, events.EventError, got[0].Type())

	good := testConfig()
	good.Metronome.BPM = 150
	f.c.ApplyConfig(good)
	require.Equal(t, 150, f.c.BPM())
}

func TestAdjustBPMClamps(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.c.AdjustBPM(5)
	require.Equal(t, 125, f.c.BPM())
	f.c.AdjustBPM(500)
	require.Equal(t, config.MaxBPM, f.c.BPM())
	f.c.AdjustBPM(-1000)
	require.Equal(t, config.MinBPM, f.c.BPM())
}

func TestToggleMute(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.c.ToggleMute()
	require.True(t, f.c.Settings().Muted)
	f.c.ToggleMute()
	require.False(t, f.c.Settings().Muted)
}

func TestConcurrentSettingsChangesAreNotLost(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.c.Start()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.c.AdjustBPM(1)
		}()
		go func() {
			defer wg.Done()
			f.c.ToggleMute()
		}()
	}
	wg.Wait()

	require.Equal(t, 160, f.c.Settings().BPM)
	require.Equal(t, 160, f.c.BPM(), "scheduler tempo follows the stored settings")
	require.False(t, f.c.Settings().Muted)
	require.False(t, f.c.sched.Muted())
}

func TestApplyRestMeasuresAndAttempts(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	next := f.c.Settings()
	next.RestMeasures = 1
	next.Attempts = 2
	require.NoError(t, f.c.Apply(next))
	require.Equal(t, exercise.Layout{MeasuresPerChord: 2, RestMeasures: 1, Attempts: 2}, f.c.seq.Layout())

	for _, i := range []int{0, 3, 6} {
		m, err := f.c.MeasureData(i)
		require.NoError(t, err)
		for _, b := range m.Beats {
			require.True(t, b.IsRest, "measure %d should rest", i)
		}
	}
	m, err := f.c.MeasureData(1)
	require.NoError(t, err)
	require.False(t, m.Beats[0].IsRest)
}

func TestSessionEventsAndStats(t *testing.T) {
	router := events.NewRouter(64)
	defer router.Close()
	ch := router.Subscribe()

	f := newFixture(t, testConfig(), router)
	f.c.Start()
	for i := 0; i < 5; i++ {
		f.beat(t)
	}

	stats := f.c.Stats()
	require.Equal(t, 1, stats.Sessions)
	require.Equal(t, 6, stats.Beats)
	require.Equal(t, 2, stats.Measures)

	f.c.Reset()

	var start *events.SessionStartEvent
	var stop *events.SessionStopEvent
	for _, e := range drain(ch) {
		switch ev := e.(type) {
		case *events.SessionStartEvent:
			start = ev
		case *events.SessionStopEvent:
			stop = ev
		}
	}
	require.NotNil(t, start)
	require.NotNil(t, stop)
	_, err := uuid.Parse(start.RunID)
	require.NoError(t, err)
	require.Equal(t, start.RunID, stop.RunID)
	require.Equal(t, 6, stop.Beats)
	require.Equal(t, []string{"root", "1st", "2nd", "rest"}, start.Pattern)

	require.Equal(t, 6, f.c.Stats().Beats)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWritesBeatsUntilCancelled(t *testing.T) {
	router := events.NewRouter(64)
	defer router.Close()

	f := newFixture(t, testConfig(), router)
	ctx, cancel := context.WithCancel(context.Background())

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- f.c.Run(ctx, &out) }()

	require.Eventually(t, func() bool {
		return f.c.Snapshot().State == metronome.StatePlaying
	}, time.Second, time.Millisecond)

	triad, _, err := f.c.CycleFor(0)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1.1 TICK  "+triad.Triad.Inversions[0])
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Equal(t, metronome.StateIdle, f.c.Snapshot().State)
}

func TestRunRequiresRouter(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	require.Error(t, f.c.Run(context.Background(), &bytes.Buffer{}))
}
