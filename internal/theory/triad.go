// Package theory provides the triad lookup used to build exercises.
package theory

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// NoteName is a natural note letter such as "C".
type NoteName string

// Quality is the triad quality. Only Major is supported.
type Quality string

// Supported qualities.
const (
	Major Quality = "major"
)

// Inversion indexes into Triad.Inversions.
type Inversion int

// Inversions of a triad, lowest note first.
const (
	RootPosition Inversion = iota
	FirstInversion
	SecondInversion
)

// String returns the short label used in patterns and on screen.
func (i Inversion) String() string {
	switch i {
	case RootPosition:
		return "root"
	case FirstInversion:
		return "1st"
	case SecondInversion:
		return "2nd"
	default:
		return fmt.Sprintf("inversion(%d)", int(i))
	}
}

// Triad is an immutable major triad with its three inversion labels.
type Triad struct {
	Root       NoteName
	Quality    Quality
	Inversions [3]string // root position, 1st inversion, 2nd inversion
	third      NoteName
	fifth      NoteName
}

// Label returns the label for the given inversion.
func (t Triad) Label(inv Inversion) string {
	return t.Inversions[inv]
}

// Tones returns the chord tones in root position order.
func (t Triad) Tones() [3]NoteName {
	return [3]NoteName{t.Root, t.third, t.fifth}
}

// UnknownRootError reports a root outside the natural-note table.
type UnknownRootError struct {
	Root NoteName
}

func (e *UnknownRootError) Error() string {
	return fmt.Sprintf("unknown root: %q", string(e.Root))
}

// UnknownQualityError reports an unsupported triad quality.
type UnknownQualityError struct {
	Quality Quality
}

func (e *UnknownQualityError) Error() string {
	return fmt.Sprintf("unknown quality: %q", string(e.Quality))
}

// majorTones holds the spelled major third and perfect fifth for each root.
var majorTones = map[NoteName][2]NoteName{
	"A": {"C#", "E"},
	"B": {"D#", "F#"},
	"C": {"E", "G"},
	"D": {"F#", "A"},
	"E": {"G#", "B"},
	"F": {"A", "C"},
	"G": {"B", "D"},
}

var roots = []NoteName{"A", "B", "C", "D", "E", "F", "G"}

// Roots returns the valid roots in table order.
func Roots() []NoteName {
	out := make([]NoteName, len(roots))
	copy(out, roots)
	return out
}

// ParseRoot accepts a root letter in either case.
func ParseRoot(s string) (NoteName, error) {
	root := NoteName(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := majorTones[root]; !ok {
		return "", &UnknownRootError{Root: NoteName(s)}
	}
	return root, nil
}

// NewTriad returns the triad for root and quality.
func NewTriad(root NoteName, quality Quality) (Triad, error) {
	if quality != Major {
		return Triad{}, &UnknownQualityError{Quality: quality}
	}
	tones, ok := majorTones[root]
	if !ok {
		return Triad{}, &UnknownRootError{Root: root}
	}
	r := string(root)
	return Triad{
		Root:    root,
		Quality: quality,
		Inversions: [3]string{
			r,
			r + "/" + string(tones[0]),
			r + "/" + string(tones[1]),
		},
		third: tones[0],
		fifth: tones[1],
	}, nil
}

// RandomTriad picks a root uniformly from Roots using rng.
func RandomTriad(rng *rand.Rand, quality Quality) (Triad, error) {
	return NewTriad(roots[rng.IntN(len(roots))], quality)
}
