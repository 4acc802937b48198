// Package exercise maps absolute measure indices onto triad-inversion
// content. A cycle shares one randomly chosen triad: optional rest measures,
// then one or more attempts of measuresPerChord measures separated by a
// single rest measure. Each played measure resolves the beat pattern
// against the cycle's triad.
package exercise

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/npratt/gimme/internal/theory"
)

// Cache bounds.
const (
	MaxCachedCycles   = 50
	MaxCachedMeasures = 200
)

// Cycle layout bounds.
const (
	MinMeasuresPerChord     = 1
	MaxMeasuresPerChord     = 16
	DefaultMeasuresPerChord = 2
	MaxLeadIn               = 4
	MaxRestMeasures         = 4
	MinAttempts             = 1
	MaxAttempts             = 8
)

// Errors returned by the sequencer.
var (
	ErrNegativeMeasure  = errors.New("measure index must not be negative")
	ErrMeasuresPerChord = errors.New("measures per chord out of range")
	ErrLeadIn           = errors.New("lead-in out of range")
	ErrRestMeasures     = errors.New("rest measures out of range")
	ErrAttempts         = errors.New("attempts out of range")
)

// Beat is one resolved beat of a measure.
type Beat struct {
	Label  string
	IsRest bool
}

// Measure is the fully resolved content of one measure.
type Measure struct {
	Index int
	Beats []Beat
}

// Cycle is one chord's span of measures, rests included.
type Cycle struct {
	Triad        theory.Triad
	StartMeasure int
	Length       int
}

// Layout describes how measures are grouped into cycles.
type Layout struct {
	MeasuresPerChord int // played measures per attempt
	RestMeasures     int // rest measures at the start of every cycle
	Attempts         int // attempts per chord, one rest measure between them
}

// CycleLength returns the number of measures in one cycle.
func (l Layout) CycleLength() int {
	return l.RestMeasures + l.Attempts*l.MeasuresPerChord + l.Attempts - 1
}

// IsRest reports whether position pos within a cycle is a rest measure.
func (l Layout) IsRest(pos int) bool {
	if pos < l.RestMeasures {
		return true
	}
	// Each attempt but the last is followed by one rest measure.
	pos -= l.RestMeasures
	return pos%(l.MeasuresPerChord+1) == l.MeasuresPerChord
}

func (l Layout) validate() error {
	if err := validateMeasuresPerChord(l.MeasuresPerChord); err != nil {
		return err
	}
	if l.RestMeasures < 0 || l.RestMeasures > MaxRestMeasures {
		return fmt.Errorf("%w: %d (want 0-%d)", ErrRestMeasures, l.RestMeasures, MaxRestMeasures)
	}
	if l.Attempts < MinAttempts || l.Attempts > MaxAttempts {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrAttempts, l.Attempts, MinAttempts, MaxAttempts)
	}
	return nil
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithRand sets the random source used for triads and random slots.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sequencer) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithLeadIn sets the number of all-rest measures before the first chord.
func WithLeadIn(n int) Option {
	return func(s *Sequencer) {
		s.leadIn = n
	}
}

// WithRestMeasures sets the number of rest measures opening every cycle.
func WithRestMeasures(n int) Option {
	return func(s *Sequencer) {
		s.layout.RestMeasures = n
	}
}

// WithAttempts sets how many times each chord is played.
func WithAttempts(n int) Option {
	return func(s *Sequencer) {
		s.layout.Attempts = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sequencer produces measure content on demand. Results are cached so a
// measure queried twice under the same configuration is identical, random
// slots included.
type Sequencer struct {
	mu      sync.Mutex
	pattern Pattern
	layout  Layout
	leadIn  int
	rng     *rand.Rand
	logger  *slog.Logger

	// Lookups use Peek so eviction follows insertion order.
	cycles   *simplelru.LRU[int, Cycle]
	measures *simplelru.LRU[int, Measure]
}

// New creates a Sequencer for pattern and measuresPerChord.
func New(pattern Pattern, measuresPerChord int, opts ...Option) (*Sequencer, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	cycles, err := simplelru.NewLRU[int, Cycle](MaxCachedCycles, nil)
	if err != nil {
		return nil, fmt.Errorf("create cycle cache: %w", err)
	}
	measures, err := simplelru.NewLRU[int, Measure](MaxCachedMeasures, nil)
	if err != nil {
		return nil, fmt.Errorf("create measure cache: %w", err)
	}

	s := &Sequencer{
		pattern:  pattern.Clone(),
		layout:   Layout{MeasuresPerChord: measuresPerChord, Attempts: 1},
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:   slog.Default(),
		cycles:   cycles,
		measures: measures,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.layout.validate(); err != nil {
		return nil, err
	}
	if err := validateLeadIn(s.leadIn); err != nil {
		return nil, err
	}
	return s, nil
}

func validateMeasuresPerChord(n int) error {
	if n < MinMeasuresPerChord || n > MaxMeasuresPerChord {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrMeasuresPerChord, n, MinMeasuresPerChord, MaxMeasuresPerChord)
	}
	return nil
}

func validateLeadIn(n int) error {
	if n < 0 || n > MaxLeadIn {
		return fmt.Errorf("%w: %d (want 0-%d)", ErrLeadIn, n, MaxLeadIn)
	}
	return nil
}

// MeasureData returns the content of the measure at index.
func (s *Sequencer) MeasureData(index int) (Measure, error) {
	if index < 0 {
		return Measure{}, fmt.Errorf("%w: %d", ErrNegativeMeasure, index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.measures.Peek(index); ok {
		return copyMeasure(m), nil
	}

	if index < s.leadIn {
		return restMeasure(index, len(s.pattern)), nil
	}
	// Rests never draw a triad, so they do not shift the random sequence.
	cycleLen := s.layout.CycleLength()
	if s.layout.IsRest((index - s.leadIn) % cycleLen) {
		m := restMeasure(index, len(s.pattern))
		s.measures.Add(index, m)
		return copyMeasure(m), nil
	}

	cycle, err := s.cycleLocked(index)
	if err != nil {
		return Measure{}, err
	}

	beats := make([]Beat, len(s.pattern))
	for i, slot := range s.pattern {
		switch slot {
		case SlotRoot:
			beats[i] = Beat{Label: cycle.Triad.Label(theory.RootPosition)}
		case SlotFirst:
			beats[i] = Beat{Label: cycle.Triad.Label(theory.FirstInversion)}
		case SlotSecond:
			beats[i] = Beat{Label: cycle.Triad.Label(theory.SecondInversion)}
		case SlotRandom:
			inv := theory.Inversion(s.rng.IntN(3))
			beats[i] = Beat{Label: cycle.Triad.Label(inv)}
		case SlotRest:
			beats[i] = Beat{IsRest: true}
		}
	}

	m := Measure{Index: index, Beats: beats}
	s.measures.Add(index, m)
	return copyMeasure(m), nil
}

// CycleFor returns the chord cycle covering index, creating it if needed.
// Lead-in measures belong to no cycle and report ok == false. Rest
// measures inside a cycle report the chord they lead into.
func (s *Sequencer) CycleFor(index int) (Cycle, bool, error) {
	if index < 0 {
		return Cycle{}, false, fmt.Errorf("%w: %d", ErrNegativeMeasure, index)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < s.leadIn {
		return Cycle{}, false, nil
	}
	c, err := s.cycleLocked(index)
	if err != nil {
		return Cycle{}, false, err
	}
	return c, true, nil
}

// cycleLocked looks up or creates the cycle for an absolute measure index
// at or past the lead-in. Caller must hold s.mu.
func (s *Sequencer) cycleLocked(index int) (Cycle, error) {
	cycleLen := s.layout.CycleLength()
	cycleIndex := (index - s.leadIn) / cycleLen
	if c, ok := s.cycles.Peek(cycleIndex); ok {
		return c, nil
	}

	triad, err := theory.RandomTriad(s.rng, theory.Major)
	if err != nil {
		return Cycle{}, fmt.Errorf("pick triad for cycle %d: %w", cycleIndex, err)
	}
	c := Cycle{
		Triad:        triad,
		StartMeasure: s.leadIn + cycleIndex*cycleLen,
		Length:       cycleLen,
	}
	if evicted := s.cycles.Add(cycleIndex, c); evicted {
		s.logger.Debug("cycle cache evicted oldest entry", "cycle", cycleIndex)
	}
	return c, nil
}

// ClearCache drops every cached cycle and measure.
func (s *Sequencer) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles.Purge()
	s.measures.Purge()
}

// SetPattern replaces the beat pattern. Cached measures are dropped when the
// pattern differs from the current one.
func (s *Sequencer) SetPattern(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pattern.Equal(p) {
		return nil
	}
	s.pattern = p.Clone()
	s.measures.Purge()
	return nil
}

// SetMeasuresPerChord changes the cycle length. Both caches are dropped
// because the measure-to-cycle mapping changes.
func (s *Sequencer) SetMeasuresPerChord(n int) error {
	return s.setLayout(func(l *Layout) { l.MeasuresPerChord = n })
}

// SetRestMeasures changes the number of rest measures opening each cycle.
func (s *Sequencer) SetRestMeasures(n int) error {
	return s.setLayout(func(l *Layout) { l.RestMeasures = n })
}

// SetAttempts changes how many times each chord is played.
func (s *Sequencer) SetAttempts(n int) error {
	return s.setLayout(func(l *Layout) { l.Attempts = n })
}

// setLayout validates and applies a layout change, dropping both caches when
// the layout differs.
func (s *Sequencer) setLayout(change func(*Layout)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.layout
	change(&next)
	if err := next.validate(); err != nil {
		return err
	}
	if next == s.layout {
		return nil
	}
	s.layout = next
	s.cycles.Purge()
	s.measures.Purge()
	return nil
}

// SetLeadIn changes the number of rest measures before the first chord.
func (s *Sequencer) SetLeadIn(n int) error {
	if err := validateLeadIn(n); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leadIn == n {
		return nil
	}
	s.leadIn = n
	s.cycles.Purge()
	s.measures.Purge()
	return nil
}

// Pattern returns a copy of the current pattern.
func (s *Sequencer) Pattern() Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pattern.Clone()
}

// MeasuresPerChord returns the played measures per attempt.
func (s *Sequencer) MeasuresPerChord() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.MeasuresPerChord
}

// Layout returns the cycle layout.
func (s *Sequencer) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// LeadIn returns the number of lead-in measures.
func (s *Sequencer) LeadIn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leadIn
}

// CacheLen returns the number of cached cycles and measures.
func (s *Sequencer) CacheLen() (cycles, measures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles.Len(), s.measures.Len()
}

func restMeasure(index, beats int) Measure {
	m := Measure{Index: index, Beats: make([]Beat, beats)}
	for i := range m.Beats {
		m.Beats[i].IsRest = true
	}
	return m
}

func copyMeasure(m Measure) Measure {
	beats := make([]Beat, len(m.Beats))
	copy(beats, m.Beats)
	return Measure{Index: m.Index, Beats: beats}
}
