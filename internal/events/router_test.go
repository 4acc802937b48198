package events

import (
	"sync"
	"testing"
	"time"
)

func beat(b, m int) *BeatEvent {
	return &BeatEvent{
		BaseEvent: NewMetronomeEvent(EventBeat, time.Now()),
		Beat:      b,
		Measure:   m,
		Accented:  b == 0,
	}
}

func TestNewRouter(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"default buffer size", 0, DefaultBufferSize},
		{"negative buffer size uses default", -10, DefaultBufferSize},
		{"custom buffer size", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(tt.size)
			if r.bufferSize != tt.want {
				t.Errorf("expected buffer size %d, got %d", tt.want, r.bufferSize)
			}
		})
	}
}

func TestRouterEmitSubscribe(t *testing.T) {
	t.Run("single subscriber receives event", func(t *testing.T) {
		r := NewRouter(10)
		defer r.Close()

		ch := r.Subscribe()
		r.Emit(beat(2, 5))

		select {
		case received := <-ch:
			if received.Type() != EventBeat {
				t.Errorf("expected %s, got %s", EventBeat, received.Type())
			}
			be, ok := received.(*BeatEvent)
			if !ok {
				t.Fatalf("expected *BeatEvent, got %T", received)
			}
			if be.Beat != 2 || be.Measure != 5 {
				t.Errorf("expected beat 2 measure 5, got beat %d measure %d", be.Beat, be.Measure)
			}
		case <-time.After(time.Second):
			t.Error("timeout waiting for event")
		}
	})

	t.Run("multiple subscribers each receive all events", func(t *testing.T) {
		r := NewRouter(10)
		defer r.Close()

		subs := []<-chan Event{r.Subscribe(), r.Subscribe(), r.Subscribe()}
		for i := 0; i < 3; i++ {
			r.Emit(beat(i, 0))
		}

		for _, ch := range subs {
			for i := 0; i < 3; i++ {
				select {
				case e := <-ch:
					if got := e.(*BeatEvent).Beat; got != i {
						t.Errorf("expected beat %d in order, got %d", i, got)
					}
				case <-time.After(time.Second):
					t.Errorf("timeout waiting for event %d", i)
				}
			}
		}
	})
}

func TestRouterUnsubscribe(t *testing.T) {
	t.Run("unsubscribe removes subscriber", func(t *testing.T) {
		r := NewRouter(10)
		defer r.Close()

		ch1 := r.Subscribe()
		ch2 := r.Subscribe()
		r.Unsubscribe(ch1)
		r.Emit(beat(0, 0))

		select {
		case _, ok := <-ch1:
			if ok {
				t.Error("expected ch1 to be closed")
			}
		default:
			t.Error("ch1 should be readable (closed)")
		}

		select {
		case <-ch2:
		case <-time.After(time.Second):
			t.Error("timeout waiting for event on ch2")
		}
	})

	t.Run("unsubscribe unknown channel is safe", func(t *testing.T) {
		r := NewRouter(10)
		defer r.Close()
		r.Unsubscribe(make(chan Event))
	})
}

func TestRouterClose(t *testing.T) {
	t.Run("close closes all subscriber channels", func(t *testing.T) {
		r := NewRouter(10)
		ch1 := r.Subscribe()
		ch2 := r.Subscribe()
		r.Close()

		for i, ch := range []<-chan Event{ch1, ch2} {
			select {
			case _, ok := <-ch:
				if ok {
					t.Errorf("expected channel %d to be closed", i)
				}
			default:
				t.Errorf("channel %d should be readable (closed)", i)
			}
		}
	})

	t.Run("emit after close is no-op", func(t *testing.T) {
		r := NewRouter(10)
		ch := r.Subscribe()
		r.Close()
		r.Emit(beat(0, 0))

		if _, ok := <-ch; ok {
			t.Error("expected channel to be closed, not receive event")
		}
	})

	t.Run("subscribe after close returns closed channel", func(t *testing.T) {
		r := NewRouter(10)
		r.Close()
		if _, ok := <-r.Subscribe(); ok {
			t.Error("expected channel to be closed")
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		r := NewRouter(10)
		r.Subscribe()
		r.Close()
		r.Close()
	})
}

func TestRouterFullBufferDrops(t *testing.T) {
	r := NewRouter(2)
	defer r.Close()

	ch := r.SubscribeBuffered(2)
	for i := 0; i < 10; i++ {
		r.Emit(beat(i%4, i/4))
	}

	count := 0
	for len(ch) > 0 {
		<-ch
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 events (buffer full, rest dropped), got %d", count)
	}
	if r.Dropped() != 8 {
		t.Errorf("Dropped() = %d, want 8", r.Dropped())
	}
}

func stateChange(from, to string) *StateChangedEvent {
	return &StateChangedEvent{
		BaseEvent: NewMetronomeEvent(EventStateChanged, time.Now()),
		From:      from,
		To:        to,
	}
}

func TestCritical(t *testing.T) {
	tests := []struct {
		event Event
		want  bool
	}{
		{beat(0, 0), false},
		{&TempoChangedEvent{BaseEvent: NewMetronomeEvent(EventTempoChanged, time.Now())}, false},
		{stateChange("playing", "paused"), true},
		{&SessionStopEvent{BaseEvent: NewControllerEvent(EventSessionStop)}, true},
		{&ErrorEvent{BaseEvent: NewControllerEvent(EventError)}, true},
	}
	for _, tt := range tests {
		if got := Critical(tt.event); got != tt.want {
			t.Errorf("Critical(%s) = %v, want %v", tt.event.Type(), got, tt.want)
		}
	}
}

func TestRouterCriticalEventWaitsForRoom(t *testing.T) {
	r := NewRouter(1)
	defer r.Close()
	r.criticalWait = 5 * time.Second

	ch := r.SubscribeBuffered(1)
	r.Emit(beat(1, 0))
	r.Emit(beat(2, 0)) // full: beats drop immediately

	done := make(chan struct{})
	go func() {
		r.Emit(stateChange("playing", "paused"))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("state change should wait while the subscriber is full")
	case <-time.After(50 * time.Millisecond):
	}

	if got := (<-ch).(*BeatEvent).Beat; got != 1 {
		t.Errorf("first event beat = %d, want 1", got)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("state change was not delivered once room freed up")
	}

	e := <-ch
	if e.Type() != EventStateChanged {
		t.Errorf("second event = %s, want %s", e.Type(), EventStateChanged)
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1 (only the beat)", r.Dropped())
	}
}

func TestRouterCriticalEventDropsAfterWait(t *testing.T) {
	r := NewRouter(1)
	defer r.Close()
	r.criticalWait = 10 * time.Millisecond

	stuck := r.SubscribeBuffered(1)
	stuck2 := r.SubscribeBuffered(1)
	r.Emit(beat(0, 0))

	start := time.Now()
	r.Emit(stateChange("paused", "idle"))
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Emit took %v, the wait is shared across subscribers", elapsed)
	}
	if r.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", r.Dropped())
	}
	if len(stuck) != 1 || len(stuck2) != 1 {
		t.Errorf("subscribers should still hold only the first beat")
	}
}

func TestRouterConcurrency(t *testing.T) {
	r := NewRouter(100)
	defer r.Close()

	subscribers := make([]<-chan Event, 10)
	for i := range subscribers {
		subscribers[i] = r.Subscribe()
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Emit(beat(j%4, j/4))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			ch := r.Subscribe()
			r.Unsubscribe(ch)
		}
	}()

	wg.Wait()

	for _, ch := range subscribers {
		for len(ch) > 0 {
			<-ch
		}
	}
}
