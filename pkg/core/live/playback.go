package live

import (
	"sync"
	"time"

	"github.com/vango-go/codedrill/pkg/core/pcm"
)

// Clock reports elapsed time on the playback timeline. The zero point is
// when the session connected. Tests substitute a manual clock.
type Clock interface {
	Now() time.Duration
}

// monotonicClock is the production Clock, anchored at construction.
type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock whose zero point is now.
func NewMonotonicClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) Now() time.Duration { return time.Since(c.start) }

// SinkHandle controls one clip that has been handed to a Sink.
type SinkHandle interface {
	// Stop abandons the clip. Any unplayed audio is discarded and the
	// clip's done callback will not fire.
	Stop()
}

// Sink renders scheduled clips. The production Sink is an oto speaker;
// tests record calls instead.
type Sink interface {
	// Start schedules buf for rendering at the given timeline position.
	// done is invoked once when the clip finishes playing naturally.
	Start(buf *pcm.Buffer, at time.Duration, done func()) (SinkHandle, error)
}

// Scheduler queues model audio for gapless playback. Each clip starts at the
// later of the running cursor and the current clock reading, and the cursor
// advances by the clip's duration, so back-to-back clips are seamless while
// a clip arriving after a gap starts immediately.
type Scheduler struct {
	clock Clock
	sink  Sink
	audio AudioConfig

	mu       sync.Mutex
	cursor   time.Duration
	inflight map[*clip]struct{}
	dropped  int
}

type clip struct {
	handle SinkHandle
}

// NewScheduler returns a Scheduler rendering through sink on clock time.
func NewScheduler(clock Clock, sink Sink, audio AudioConfig) *Scheduler {
	return &Scheduler{
		clock:    clock,
		sink:     sink,
		audio:    audio,
		inflight: make(map[*clip]struct{}),
	}
}

// Enqueue decodes one inbound PCM payload into a playback buffer and
// schedules it. Malformed payloads (empty, or not whole sample frames for
// the configured channel layout) are dropped and counted; they never end
// the session.
func (s *Scheduler) Enqueue(data []byte) error {
	if len(data) == 0 || len(data)%2 != 0 {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return nil
	}
	buf, err := pcm.PCMToFloatBuffer(pcm.DecodeFrame(data), s.audio.Channels, s.audio.SampleRate)
	if err != nil {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	start := s.cursor
	if now := s.clock.Now(); now > start {
		start = now
	}
	s.cursor = start + s.audio.SamplesDuration(buf.FrameCount())
	c := &clip{}
	s.inflight[c] = struct{}{}
	s.mu.Unlock()

	handle, err := s.sink.Start(buf, start, func() { s.finish(c) })
	if err != nil {
		s.finish(c)
		return err
	}
	s.mu.Lock()
	c.handle = handle
	s.mu.Unlock()
	return nil
}

// Interrupt discards every queued and playing clip and rewinds the cursor to
// zero, so post-interrupt audio starts fresh against the current clock.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stopped := make([]*clip, 0, len(s.inflight))
	for c := range s.inflight {
		stopped = append(stopped, c)
	}
	s.inflight = make(map[*clip]struct{})
	s.cursor = 0
	s.mu.Unlock()

	// Stop outside the lock; a sink may run callbacks synchronously.
	for _, c := range stopped {
		if c.handle != nil {
			c.handle.Stop()
		}
	}
}

// InFlight returns the number of clips queued or currently playing.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Cursor returns the timeline position at which the next clip would start
// if it arrived with no gap.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Dropped returns the count of malformed payloads discarded so far.
func (s *Scheduler) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Scheduler) finish(c *clip) {
	s.mu.Lock()
	delete(s.inflight, c)
	s.mu.Unlock()
}
