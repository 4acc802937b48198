package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
)

// General MIDI percussion lives on channel 10, zero-based 9.
const (
	percussionChannel = 9
	highWoodBlock     = 76
	lowWoodBlock      = 77
	accentVelocity    = 127
	regularVelocity   = 90
)

// MIDI sends each click as a wood block hit on the percussion channel.
type MIDI struct {
	send   func(midi.Message) error
	close  func() error
	logger *slog.Logger
}

// NewMIDI wraps a message sender. A nil logger uses slog.Default().
func NewMIDI(send func(midi.Message) error, logger *slog.Logger) *MIDI {
	if logger == nil {
		logger = slog.Default()
	}
	return &MIDI{send: send, logger: logger}
}

// OpenMIDI opens the first output port whose name contains port, ignoring
// case. An empty port selects the first available output. A MIDI driver
// must be registered by the caller.
func OpenMIDI(port string, logger *slog.Logger) (*MIDI, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return nil, errors.New("no MIDI output ports available")
	}
	want := strings.ToLower(port)
	for _, out := range outs {
		if want != "" && !strings.Contains(strings.ToLower(out.String()), want) {
			continue
		}
		send, err := midi.SendTo(out)
		if err != nil {
			return nil, fmt.Errorf("open MIDI port %q: %w", out.String(), err)
		}
		m := NewMIDI(send, logger)
		m.close = out.Close
		m.logger.Info("MIDI click output opened", "port", out.String())
		return m, nil
	}
	return nil, fmt.Errorf("MIDI output port %q not found", port)
}

// PlayClick sends a note on and note off pair. Send failures are logged.
func (m *MIDI) PlayClick(accented bool) {
	key, velocity := uint8(lowWoodBlock), uint8(regularVelocity)
	if accented {
		key, velocity = highWoodBlock, accentVelocity
	}
	if err := m.send(midi.NoteOn(percussionChannel, key, velocity)); err != nil {
		m.logger.Warn("MIDI send failed", "error", err)
		return
	}
	if err := m.send(midi.NoteOff(percussionChannel, key)); err != nil {
		m.logger.Warn("MIDI send failed", "error", err)
	}
}

// EnsureUnlocked is a no-op; MIDI ports need no user gesture.
func (m *MIDI) EnsureUnlocked() {}

// Close closes the output port if this MIDI opened it.
func (m *MIDI) Close() error {
	if m.close == nil {
		return nil
	}
	return m.close()
}
