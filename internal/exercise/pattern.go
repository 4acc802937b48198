package exercise

import (
	"errors"
	"fmt"
	"strings"
)

// BeatSlot is the role of one beat within a measure.
type BeatSlot string

// Beat slots.
const (
	SlotRoot   BeatSlot = "root"
	SlotFirst  BeatSlot = "1st"
	SlotSecond BeatSlot = "2nd"
	SlotRandom BeatSlot = "random"
	SlotRest   BeatSlot = "rest"
)

// Pattern length bounds.
const (
	MinPatternLength = 1
	MaxPatternLength = 8
)

// Errors returned by pattern parsing and validation.
var (
	ErrPatternLength = errors.New("pattern length out of range")
	ErrUnknownSlot   = errors.New("unknown beat slot")
)

var slotAliases = map[string]BeatSlot{
	"root":   SlotRoot,
	"r":      SlotRoot,
	"0":      SlotRoot,
	"1st":    SlotFirst,
	"first":  SlotFirst,
	"1":      SlotFirst,
	"2nd":    SlotSecond,
	"second": SlotSecond,
	"2":      SlotSecond,
	"random": SlotRandom,
	"rand":   SlotRandom,
	"?":      SlotRandom,
	"rest":   SlotRest,
	"-":      SlotRest,
	"x":      SlotRest,
}

// ParseBeatSlot normalizes a slot name or alias, ignoring case and
// surrounding whitespace.
func ParseBeatSlot(s string) (BeatSlot, error) {
	slot, ok := slotAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
	}
	return slot, nil
}

// Valid reports whether the slot is one of the canonical values.
func (b BeatSlot) Valid() bool {
	switch b {
	case SlotRoot, SlotFirst, SlotSecond, SlotRandom, SlotRest:
		return true
	}
	return false
}

// Pattern is the ordered list of slots for one measure. Its length is the
// number of beats per measure.
type Pattern []BeatSlot

// DefaultPattern plays the three inversions in order and rests on beat 4.
func DefaultPattern() Pattern {
	return Pattern{SlotRoot, SlotFirst, SlotSecond, SlotRest}
}

// ParsePattern parses slots separated by commas or whitespace.
func ParsePattern(s string) (Pattern, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return ParseSlots(fields)
}

// ParseSlots parses each element as a slot and validates the result.
func ParseSlots(items []string) (Pattern, error) {
	p := make(Pattern, 0, len(items))
	for _, item := range items {
		slot, err := ParseBeatSlot(item)
		if err != nil {
			return nil, err
		}
		p = append(p, slot)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the length bounds and that every slot is canonical.
func (p Pattern) Validate() error {
	if len(p) < MinPatternLength || len(p) > MaxPatternLength {
		return fmt.Errorf("%w: %d beats (want %d-%d)", ErrPatternLength, len(p), MinPatternLength, MaxPatternLength)
	}
	for i, slot := range p {
		if !slot.Valid() {
			return fmt.Errorf("beat %d: %w: %q", i+1, ErrUnknownSlot, string(slot))
		}
	}
	return nil
}

// Equal reports whether both patterns have the same slots in the same order.
func (p Pattern) Equal(other Pattern) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (p Pattern) Clone() Pattern {
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

// Strings returns the slots as plain strings.
func (p Pattern) Strings() []string {
	out := make([]string, len(p))
	for i, slot := range p {
		out[i] = string(slot)
	}
	return out
}

func (p Pattern) String() string {
	return strings.Join(p.Strings(), " ")
}
