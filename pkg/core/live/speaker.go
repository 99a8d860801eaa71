package live

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/vango-go/codedrill/pkg/core/pcm"
)

// oto supports exactly one context per process and offers no way to release
// it, so the context is created once on first use and shared by every
// Speaker. Each session still gets its own player and clip queue.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error

	newOtoContext = oto.NewContext
)

func sharedOtoContext(audio AudioConfig) (*oto.Context, error) {
	otoOnce.Do(func() {
		opts := &oto.NewContextOptions{
			SampleRate:   audio.SampleRate,
			ChannelCount: audio.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		}
		ctx, ready, err := newOtoContext(opts)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

// Speaker renders scheduled clips through the system audio output. It
// implements Sink: the hardware drains clips in arrival order at real time,
// so the scheduler's timeline positions are already honored, and Stop on a
// handle discards that clip's unplayed bytes.
type Speaker struct {
	otoCtx *oto.Context
	player *oto.Player

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*speakerClip
	playing bool
	closed  bool
}

type speakerClip struct {
	s    *Speaker
	data []byte
	done func()
}

// NewSpeaker returns a Speaker for the given format, creating the process
// audio context if this is the first use.
func NewSpeaker(audio AudioConfig) (*Speaker, error) {
	ctx, err := sharedOtoContext(audio)
	if err != nil {
		return nil, newError(KindDevice, "Could not open the audio output device.", fmt.Errorf("oto: %w", err))
	}

	s := &Speaker{otoCtx: ctx}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Start implements Sink.
func (s *Speaker) Start(buf *pcm.Buffer, _ time.Duration, done func()) (SinkHandle, error) {
	data := pcm.InterleaveS16LE(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, newError(KindDevice, "Audio output is closed.", nil)
	}
	c := &speakerClip{s: s, data: data, done: done}
	s.queue = append(s.queue, c)

	// Start playing on first clip.
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	s.cond.Signal()
	return c, nil
}

// Read implements io.Reader for oto.Player. It drains queued clips in order
// and fires each clip's done callback as its last byte is consumed.
func (s *Speaker) Read(p []byte) (int, error) {
	s.mu.Lock()

	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed && len(s.queue) == 0 {
		s.mu.Unlock()
		// Silence lets oto drain gracefully.
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	var finished []func()
	n := 0
	for n < len(p) && len(s.queue) > 0 {
		c := s.queue[0]
		k := copy(p[n:], c.data)
		c.data = c.data[k:]
		n += k
		if len(c.data) == 0 {
			s.queue = s.queue[1:]
			if c.done != nil {
				finished = append(finished, c.done)
			}
		}
	}
	s.mu.Unlock()

	for _, done := range finished {
		done()
	}
	return n, nil
}

// Stop implements SinkHandle. The clip's unplayed bytes are discarded and
// its done callback will not fire.
func (c *speakerClip) Stop() {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c.data = nil
	c.done = nil
	for i, q := range s.queue {
		if q == c {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
}

// Close discards queued clips and closes this Speaker's player. The shared
// audio context stays open for the next session. Idempotent.
func (s *Speaker) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	player := s.player
	s.player = nil
	s.cond.Broadcast()
	s.mu.Unlock()

	if player != nil {
		player.Pause()
		player.Close()
	}
}
