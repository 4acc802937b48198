package audio

import (
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendNone    = "none"
	BackendSpeaker = "speaker"
	BackendMIDI    = "midi"
)

// Device is a click backend that holds an output resource.
type Device interface {
	PlayClick(accented bool)
	EnsureUnlocked()
	Close() error
}

// Options select and configure a backend.
type Options struct {
	Backend    string
	SampleRate int
	MIDIPort   string
}

// Open returns the device for opts.Backend. An empty backend means speaker.
func Open(opts Options, logger *slog.Logger) (Device, error) {
	switch opts.Backend {
	case BackendNone:
		return Silent{}, nil
	case BackendSpeaker, "":
		return NewSpeaker(opts.SampleRate, logger), nil
	case BackendMIDI:
		return OpenMIDI(opts.MIDIPort, logger)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", opts.Backend)
	}
}

// Silent plays nothing.
type Silent struct{}

func (Silent) PlayClick(bool)  {}
func (Silent) EnsureUnlocked() {}
func (Silent) Close() error    { return nil }
