// Package config provides configuration types, defaults and validation for gimme.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/npratt/gimme/internal/exercise"
	"github.com/npratt/gimme/internal/metronome"
)

// Practice setting bounds.
const (
	MinBPM = 10
	MaxBPM = 200
)

// Config holds all configuration for gimme.
type Config struct {
	Metronome   MetronomeConfig   `yaml:"metronome" mapstructure:"metronome"`
	Exercise    ExerciseConfig    `yaml:"exercise" mapstructure:"exercise"`
	Display     DisplayConfig     `yaml:"display" mapstructure:"display"`
	Audio       AudioConfig       `yaml:"audio" mapstructure:"audio"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
}

// MetronomeConfig holds beat scheduler settings.
type MetronomeConfig struct {
	BPM          int           `yaml:"bpm" mapstructure:"bpm"`
	Muted        bool          `yaml:"muted" mapstructure:"muted"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// ExerciseConfig holds exercise generation settings.
type ExerciseConfig struct {
	Pattern          exercise.Pattern `yaml:"pattern" mapstructure:"pattern"`
	MeasuresPerChord int              `yaml:"measures_per_chord" mapstructure:"measures_per_chord"`
	RestMeasures     int              `yaml:"rest_measures" mapstructure:"rest_measures"` // Rest measures opening every chord
	Attempts         int              `yaml:"attempts" mapstructure:"attempts"`           // Attempts per chord, one rest measure between them
	LeadIn           int              `yaml:"lead_in" mapstructure:"lead_in"`             // All-rest measures before the first chord
	Seed             uint64           `yaml:"seed" mapstructure:"seed"`                   // 0 = random each run
}

// DisplayConfig holds TUI lane settings.
type DisplayConfig struct {
	UnitsPerBeat int  `yaml:"units_per_beat" mapstructure:"units_per_beat"` // Lane cells per beat
	NowPost      int  `yaml:"now_post" mapstructure:"now_post"`             // Column of the "now" post
	FrameRate    int  `yaml:"frame_rate" mapstructure:"frame_rate"`         // Frames per second
	PauseOnBlur  bool `yaml:"pause_on_blur" mapstructure:"pause_on_blur"`   // Auto-pause when the terminal loses focus
}

// AudioConfig selects the click backend.
type AudioConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // none, speaker or midi
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate"`
	MIDIPort   string `yaml:"midi_port" mapstructure:"midi_port"` // Substring of the output port name
}

// PathsConfig holds file paths.
type PathsConfig struct {
	Log string `yaml:"log" mapstructure:"log"`
}

// LogRotationConfig holds settings for log file rotation.
// Used for the TUI debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Metronome: MetronomeConfig{
			BPM:          metronome.DefaultBPM,
			Muted:        false,
			PollInterval: metronome.DefaultPollInterval,
		},
		Exercise: ExerciseConfig{
			Pattern:          exercise.DefaultPattern(),
			MeasuresPerChord: exercise.DefaultMeasuresPerChord,
			RestMeasures:     0,
			Attempts:         1,
			LeadIn:           0,
			Seed:             0,
		},
		Display: DisplayConfig{
			UnitsPerBeat: 8,
			NowPost:      6,
			FrameRate:    30,
			PauseOnBlur:  true,
		},
		Audio: AudioConfig{
			Backend:    "speaker",
			SampleRate: 44100,
		},
		Paths: PathsConfig{
			Log: ".gimme/gimme.log",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Practice is the subset of settings a running session can change.
type Practice struct {
	BPM              int
	Pattern          exercise.Pattern
	MeasuresPerChord int
	RestMeasures     int
	Attempts         int
	LeadIn           int
	Muted            bool
}

// Practice extracts the live practice settings.
func (c *Config) Practice() Practice {
	return Practice{
		BPM:              c.Metronome.BPM,
		Pattern:          c.Exercise.Pattern.Clone(),
		MeasuresPerChord: c.Exercise.MeasuresPerChord,
		RestMeasures:     c.Exercise.RestMeasures,
		Attempts:         c.Exercise.Attempts,
		LeadIn:           c.Exercise.LeadIn,
		Muted:            c.Metronome.Muted,
	}
}

// ValidationError lists every invalid field.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks practice settings against their allowed ranges.
func (p Practice) Validate() error {
	var problems []string
	if p.BPM < MinBPM || p.BPM > MaxBPM {
		problems = append(problems, fmt.Sprintf("bpm %d out of range %d-%d", p.BPM, MinBPM, MaxBPM))
	}
	if err := p.Pattern.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if p.MeasuresPerChord < exercise.MinMeasuresPerChord || p.MeasuresPerChord > exercise.MaxMeasuresPerChord {
		problems = append(problems, fmt.Sprintf("measures per chord %d out of range %d-%d",
			p.MeasuresPerChord, exercise.MinMeasuresPerChord, exercise.MaxMeasuresPerChord))
	}
	if p.RestMeasures < 0 || p.RestMeasures > exercise.MaxRestMeasures {
		problems = append(problems, fmt.Sprintf("rest measures %d out of range 0-%d", p.RestMeasures, exercise.MaxRestMeasures))
	}
	if p.Attempts < exercise.MinAttempts || p.Attempts > exercise.MaxAttempts {
		problems = append(problems, fmt.Sprintf("attempts %d out of range %d-%d",
			p.Attempts, exercise.MinAttempts, exercise.MaxAttempts))
	}
	if p.LeadIn < 0 || p.LeadIn > exercise.MaxLeadIn {
		problems = append(problems, fmt.Sprintf("lead-in %d out of range 0-%d", p.LeadIn, exercise.MaxLeadIn))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Changed returns the names of the fields that differ between p and next.
func (p Practice) Changed(next Practice) []string {
	var fields []string
	if p.BPM != next.BPM {
		fields = append(fields, "bpm")
	}
	if !p.Pattern.Equal(next.Pattern) {
		fields = append(fields, "pattern")
	}
	if p.MeasuresPerChord != next.MeasuresPerChord {
		fields = append(fields, "measures_per_chord")
	}
	if p.RestMeasures != next.RestMeasures {
		fields = append(fields, "rest_measures")
	}
	if p.Attempts != next.Attempts {
		fields = append(fields, "attempts")
	}
	if p.LeadIn != next.LeadIn {
		fields = append(fields, "lead_in")
	}
	if p.Muted != next.Muted {
		fields = append(fields, "muted")
	}
	return fields
}

// Structural reports whether moving to next changes the exercise layout
// (pattern or any part of the cycle layout).
func (p Practice) Structural(next Practice) bool {
	return !p.Pattern.Equal(next.Pattern) ||
		p.MeasuresPerChord != next.MeasuresPerChord ||
		p.RestMeasures != next.RestMeasures ||
		p.Attempts != next.Attempts ||
		p.LeadIn != next.LeadIn
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	var problems []string
	var verr *ValidationError
	if err := c.Practice().Validate(); errors.As(err, &verr) {
		problems = append(problems, verr.Problems...)
	}
	switch c.Audio.Backend {
	case "none", "speaker", "midi":
	default:
		problems = append(problems, fmt.Sprintf("unknown audio backend %q", c.Audio.Backend))
	}
	if c.Metronome.PollInterval <= 0 {
		problems = append(problems, "metronome poll interval must be positive")
	}
	if c.Display.FrameRate <= 0 {
		problems = append(problems, "display frame rate must be positive")
	}
	if c.Display.UnitsPerBeat <= 0 {
		problems = append(problems, "display units per beat must be positive")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
