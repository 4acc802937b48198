package events

import (
	"context"
	"log/slog"
	"sync"
)

// Sink consumes events from the router.
type Sink interface {
	Start(ctx context.Context, events <-chan Event) error
	Stop() error
}

// LogSink writes events to a structured logger. Beat events are logged at
// debug level since they arrive several times per second.
type LogSink struct {
	logger *slog.Logger
	done   chan struct{}
	once   sync.Once
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins processing events until the context is canceled or the
// events channel is closed.
func (s *LogSink) Start(ctx context.Context, events <-chan Event) error {
	go s.run(ctx, events)
	return nil
}

func (s *LogSink) run(ctx context.Context, events <-chan Event) {
	defer s.once.Do(func() { close(s.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.write(ctx, event)
		}
	}
}

func (s *LogSink) write(ctx context.Context, event Event) {
	level := slog.LevelInfo
	switch e := event.(type) {
	case *BeatEvent:
		level = slog.LevelDebug
	case *ErrorEvent:
		level = slog.LevelWarn
		if e.Severity == SeverityError {
			level = slog.LevelError
		}
	}
	s.logger.Log(ctx, level, Format(event),
		"event_type", string(event.Type()),
		"source", event.Source(),
	)
}

// Stop waits for the run goroutine to finish.
func (s *LogSink) Stop() error {
	<-s.done
	return nil
}
