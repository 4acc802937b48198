package audio

import (
	"log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// DefaultSampleRate is used when no sample rate is configured.
const DefaultSampleRate = 44100

// Speaker plays synthesized clicks on the default audio output. The output
// is opened lazily by EnsureUnlocked; until that succeeds clicks are dropped
// and the metronome stays visual only.
type Speaker struct {
	sampleRate beep.SampleRate
	logger     *slog.Logger

	init  func(beep.SampleRate, int) error
	play  func(...beep.Streamer)
	close func()

	mu     sync.Mutex
	ready  bool
	warned bool
}

// NewSpeaker creates a Speaker. A nil logger uses slog.Default().
func NewSpeaker(sampleRate int, logger *slog.Logger) *Speaker {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		sampleRate: beep.SampleRate(sampleRate),
		logger:     logger,
		init:       speaker.Init,
		play:       speaker.Play,
		close:      speaker.Close,
	}
}

// EnsureUnlocked opens the audio output if it is not open yet. It is safe to
// call on every start and resume.
func (s *Speaker) EnsureUnlocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return
	}
	if err := s.init(s.sampleRate, s.sampleRate.N(time.Second/100)); err != nil {
		if !s.warned {
			s.logger.Warn("audio output unavailable, continuing without sound", "error", err)
			s.warned = true
		}
		return
	}
	s.ready = true
	s.logger.Debug("audio output ready", "sample_rate", int(s.sampleRate))
}

// PlayClick queues a click without waiting for it to finish.
func (s *Speaker) PlayClick(accented bool) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		return
	}
	s.play(Click(s.sampleRate, accented))
}

// Ready reports whether the output has been opened.
func (s *Speaker) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Close releases the audio output.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		s.close()
		s.ready = false
	}
	return nil
}
