package live

import (
	"sync"
	"testing"
	"time"

	"github.com/vango-go/codedrill/pkg/core/pcm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

type fakeSinkCall struct {
	buf     *pcm.Buffer
	at      time.Duration
	done    func()
	stopped bool
}

func (c *fakeSinkCall) Stop() { c.stopped = true }

type fakeSink struct {
	mu    sync.Mutex
	calls []*fakeSinkCall
}

func (s *fakeSink) Start(buf *pcm.Buffer, at time.Duration, done func()) (SinkHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := &fakeSinkCall{buf: buf, at: at, done: done}
	s.calls = append(s.calls, call)
	return call, nil
}

// pcmBytes returns n samples of little-endian silence.
func pcmBytes(n int) []byte { return make([]byte, n*2) }

func newTestScheduler() (*Scheduler, *fakeClock, *fakeSink) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	return NewScheduler(clock, sink, DefaultPlaybackConfig()), clock, sink
}

func TestSchedulerGaplessChaining(t *testing.T) {
	s, _, sink := newTestScheduler()

	// Two 24000-sample clips at 24 kHz: one second each.
	if err := s.Enqueue(pcmBytes(24000)); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(pcmBytes(24000)); err != nil {
		t.Fatal(err)
	}

	if got := sink.calls[0].at; got != 0 {
		t.Errorf("first clip scheduled at %v, want 0", got)
	}
	if got := sink.calls[1].at; got != time.Second {
		t.Errorf("second clip scheduled at %v, want 1s", got)
	}
	if got := s.Cursor(); got != 2*time.Second {
		t.Errorf("cursor = %v, want 2s", got)
	}

	// The sink receives decoded playback buffers, not raw wire bytes.
	buf := sink.calls[0].buf
	if got := buf.FrameCount(); got != 24000 {
		t.Errorf("buffer frame count = %d, want 24000", got)
	}
	if got := buf.SampleRate; got != 24000 {
		t.Errorf("buffer sample rate = %d, want 24000", got)
	}
}

func TestSchedulerLateClipStartsNow(t *testing.T) {
	s, clock, sink := newTestScheduler()

	if err := s.Enqueue(pcmBytes(24000)); err != nil {
		t.Fatal(err)
	}
	// The first clip ended at t=1s; a clip arriving at t=3s must not be
	// scheduled in the past.
	clock.advance(3 * time.Second)
	if err := s.Enqueue(pcmBytes(12000)); err != nil {
		t.Fatal(err)
	}

	if got := sink.calls[1].at; got != 3*time.Second {
		t.Errorf("late clip scheduled at %v, want 3s", got)
	}
	if got := s.Cursor(); got != 3*time.Second+500*time.Millisecond {
		t.Errorf("cursor = %v, want 3.5s", got)
	}
}

func TestSchedulerInterrupt(t *testing.T) {
	s, clock, sink := newTestScheduler()

	for i := 0; i < 3; i++ {
		if err := s.Enqueue(pcmBytes(24000)); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.InFlight(); got != 3 {
		t.Fatalf("in-flight = %d, want 3", got)
	}

	s.Interrupt()

	if got := s.InFlight(); got != 0 {
		t.Errorf("in-flight after interrupt = %d, want 0", got)
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("cursor after interrupt = %v, want 0", got)
	}
	for i, call := range sink.calls {
		if !call.stopped {
			t.Errorf("clip %d was not stopped", i)
		}
	}

	// The next clip restarts the timeline from the live clock.
	clock.advance(250 * time.Millisecond)
	if err := s.Enqueue(pcmBytes(24000)); err != nil {
		t.Fatal(err)
	}
	if got := sink.calls[3].at; got != 250*time.Millisecond {
		t.Errorf("post-interrupt clip scheduled at %v, want 250ms", got)
	}
}

func TestSchedulerCompletionShrinksInFlight(t *testing.T) {
	s, _, sink := newTestScheduler()

	if err := s.Enqueue(pcmBytes(24000)); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue(pcmBytes(24000)); err != nil {
		t.Fatal(err)
	}

	sink.calls[0].done()
	if got := s.InFlight(); got != 1 {
		t.Errorf("in-flight after one completion = %d, want 1", got)
	}
	sink.calls[1].done()
	if got := s.InFlight(); got != 0 {
		t.Errorf("in-flight after all completions = %d, want 0", got)
	}
}

func TestSchedulerDropsMalformedPayloads(t *testing.T) {
	s, _, sink := newTestScheduler()

	if err := s.Enqueue(nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Enqueue([]byte{0x01}); err != nil {
		t.Fatal(err)
	}
	if got := s.Dropped(); got != 2 {
		t.Errorf("dropped = %d, want 2", got)
	}
	if len(sink.calls) != 0 {
		t.Errorf("malformed payloads reached the sink: %d calls", len(sink.calls))
	}
	if got := s.Cursor(); got != 0 {
		t.Errorf("cursor moved on malformed payload: %v", got)
	}
}
