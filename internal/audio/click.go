// Package audio provides the click backends used by the metronome: a
// synthesized click on the system speaker and a percussion note on a MIDI
// output port.
package audio

import (
	"math"
	"time"

	"github.com/faiface/beep"
)

const (
	clickDuration = 30 * time.Millisecond
	decayFloor    = 0.001

	accentFreq  = 1000.0
	accentGain  = 0.3
	regularFreq = 800.0
	regularGain = 0.15
)

// Click returns one sine click that decays exponentially to silence over
// 30ms. Accented clicks are higher and louder.
func Click(sr beep.SampleRate, accented bool) beep.Streamer {
	freq, gain := regularFreq, regularGain
	if accented {
		freq, gain = accentFreq, accentGain
	}
	total := sr.N(clickDuration)
	if total <= 0 {
		total = 1
	}
	decay := math.Log(decayFloor/gain) / float64(total)

	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= total {
			return 0, false
		}
		for i := range samples {
			if pos >= total {
				return i, true
			}
			t := float64(pos) / float64(sr)
			v := gain * math.Exp(decay*float64(pos)) * math.Sin(2*math.Pi*freq*t)
			samples[i][0] = v
			samples[i][1] = v
			pos++
		}
		return len(samples), true
	})
}
