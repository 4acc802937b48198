package config

import (
	"errors"
	"testing"
	"time"

	"github.com/npratt/gimme/internal/exercise"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestDefaultMetronomeConfig(t *testing.T) {
	cfg := Default()
	if cfg.Metronome.BPM != 80 {
		t.Errorf("Metronome.BPM = %d, want 80", cfg.Metronome.BPM)
	}
	if cfg.Metronome.PollInterval != 10*time.Millisecond {
		t.Errorf("Metronome.PollInterval = %v, want 10ms", cfg.Metronome.PollInterval)
	}
	if cfg.Metronome.Muted {
		t.Error("Metronome.Muted should default to false")
	}
}

func TestDefaultExerciseConfig(t *testing.T) {
	cfg := Default()
	if !cfg.Exercise.Pattern.Equal(exercise.Pattern{"root", "1st", "2nd", "rest"}) {
		t.Errorf("Exercise.Pattern = %v", cfg.Exercise.Pattern)
	}
	if cfg.Exercise.MeasuresPerChord != 2 {
		t.Errorf("Exercise.MeasuresPerChord = %d, want 2", cfg.Exercise.MeasuresPerChord)
	}
	if cfg.Exercise.LeadIn != 0 {
		t.Errorf("Exercise.LeadIn = %d, want 0", cfg.Exercise.LeadIn)
	}
	if cfg.Exercise.RestMeasures != 0 || cfg.Exercise.Attempts != 1 {
		t.Errorf("Exercise rests/attempts = %d/%d, want 0/1", cfg.Exercise.RestMeasures, cfg.Exercise.Attempts)
	}
}

func TestDefaultPathsConfig(t *testing.T) {
	cfg := Default()
	if cfg.Paths.Log != ".gimme/gimme.log" {
		t.Errorf("Paths.Log = %q, want %q", cfg.Paths.Log, ".gimme/gimme.log")
	}
	if cfg.Audio.Backend != "speaker" {
		t.Errorf("Audio.Backend = %q, want speaker", cfg.Audio.Backend)
	}
}

func TestPracticeValidate(t *testing.T) {
	valid := Default().Practice()

	tests := []struct {
		name    string
		mutate  func(p *Practice)
		wantErr bool
	}{
		{"defaults", func(p *Practice) {}, false},
		{"min bpm", func(p *Practice) { p.BPM = 10 }, false},
		{"max bpm", func(p *Practice) { p.BPM = 200 }, false},
		{"bpm too low", func(p *Practice) { p.BPM = 9 }, true},
		{"bpm too high", func(p *Practice) { p.BPM = 201 }, true},
		{"one beat pattern", func(p *Practice) { p.Pattern = exercise.Pattern{"random"} }, false},
		{"empty pattern", func(p *Practice) { p.Pattern = nil }, true},
		{"nine beat pattern", func(p *Practice) {
			p.Pattern = exercise.Pattern{"root", "root", "root", "root", "root", "root", "root", "root", "root"}
		}, true},
		{"sixteen measures per chord", func(p *Practice) { p.MeasuresPerChord = 16 }, false},
		{"zero measures per chord", func(p *Practice) { p.MeasuresPerChord = 0 }, true},
		{"lead-in too long", func(p *Practice) { p.LeadIn = 5 }, true},
		{"rest measures", func(p *Practice) { p.RestMeasures = 4 }, false},
		{"too many rest measures", func(p *Practice) { p.RestMeasures = 5 }, true},
		{"eight attempts", func(p *Practice) { p.Attempts = 8 }, false},
		{"zero attempts", func(p *Practice) { p.Attempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			p.Pattern = valid.Pattern.Clone()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPracticeValidateCollectsAllProblems(t *testing.T) {
	p := Practice{BPM: 0, MeasuresPerChord: 0}
	err := p.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Problems) != 4 {
		t.Errorf("expected 4 problems, got %v", verr.Problems)
	}
}

func TestPracticeChangedAndStructural(t *testing.T) {
	base := Default().Practice()

	next := base
	next.BPM = 120
	next.Muted = true
	if got := base.Changed(next); len(got) != 2 || got[0] != "bpm" || got[1] != "muted" {
		t.Errorf("Changed() = %v", got)
	}
	if base.Structural(next) {
		t.Error("bpm and mute changes are not structural")
	}

	next = base
	next.Pattern = exercise.Pattern{"root", "1st", "2nd", "rest", "random"}
	if !base.Structural(next) {
		t.Error("pattern change should be structural")
	}

	next = base
	next.MeasuresPerChord = 4
	if !base.Structural(next) {
		t.Error("measures per chord change should be structural")
	}

	next = base
	next.RestMeasures = 1
	next.Attempts = 2
	if got := base.Changed(next); len(got) != 2 || got[0] != "rest_measures" || got[1] != "attempts" {
		t.Errorf("Changed() = %v", got)
	}
	if !base.Structural(next) {
		t.Error("rest measures and attempts changes should be structural")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Default()
	cfg.Audio.Backend = "cowbell"
	cfg.Display.FrameRate = 0
	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("expected 2 problems, got %v", verr.Problems)
	}
}
