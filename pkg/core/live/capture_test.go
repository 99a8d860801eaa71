package live

import (
	"testing"

	"github.com/vango-go/codedrill/pkg/core/pcm"
)

type fakeSource struct {
	onSamples func([]float32)
	starts    int
	stops     int
}

func (f *fakeSource) Start(onSamples func([]float32)) error {
	f.onSamples = onSamples
	f.starts++
	return nil
}

func (f *fakeSource) Stop() error {
	f.stops++
	return nil
}

func newTestCapture(t *testing.T) (*Capture, *fakeSource, *[]pcm.Frame) {
	t.Helper()
	src := &fakeSource{}
	var frames []pcm.Frame
	c := NewCapture(DefaultCaptureConfig(), src, func(f pcm.Frame) {
		frames = append(frames, f)
	}, nil)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	return c, src, &frames
}

func TestCaptureAccumulatesFullBlocks(t *testing.T) {
	c, src, frames := newTestCapture(t)
	defer c.Stop()

	// Three pushes of 2000 samples: 6000 total, one 4096 block out.
	for i := 0; i < 3; i++ {
		src.onSamples(make([]float32, 2000))
	}
	if got := len(*frames); got != 1 {
		t.Fatalf("frames emitted = %d, want 1", got)
	}
	if got := (*frames)[0].MIMEType; got != pcm.CaptureMIMEType {
		t.Errorf("frame MIME type = %q, want %q", got, pcm.CaptureMIMEType)
	}

	// 2192 more completes the second block exactly.
	src.onSamples(make([]float32, 2192))
	if got := len(*frames); got != 2 {
		t.Errorf("frames emitted = %d, want 2", got)
	}
}

func TestCaptureMuteSuppressesFrames(t *testing.T) {
	c, src, frames := newTestCapture(t)
	defer c.Stop()

	c.SetMuted(true)
	src.onSamples(make([]float32, 8192))
	if got := len(*frames); got != 0 {
		t.Fatalf("muted capture emitted %d frames, want 0", got)
	}

	c.SetMuted(false)
	src.onSamples(make([]float32, 8192))
	if got := len(*frames); got != 2 {
		t.Errorf("unmuted capture emitted %d frames, want 2", got)
	}
}

func TestCaptureMuteDropsPartialBlock(t *testing.T) {
	c, src, frames := newTestCapture(t)
	defer c.Stop()

	// Leave 3000 samples pending, then mute and unmute.
	src.onSamples(make([]float32, 3000))
	c.SetMuted(true)
	c.SetMuted(false)

	// 3000 more would complete a block only if the pre-mute partial
	// survived. It must not.
	src.onSamples(make([]float32, 3000))
	if got := len(*frames); got != 0 {
		t.Errorf("frames emitted = %d, want 0 after mute cleared the partial", got)
	}
	src.onSamples(make([]float32, 1096))
	if got := len(*frames); got != 1 {
		t.Errorf("frames emitted = %d, want 1", got)
	}
}

func TestCaptureStopIdempotent(t *testing.T) {
	c, src, _ := newTestCapture(t)

	for i := 0; i < 3; i++ {
		if err := c.Stop(); err != nil {
			t.Fatal(err)
		}
	}
	if src.stops != 1 {
		t.Errorf("device stopped %d times, want 1", src.stops)
	}

	// Samples arriving after stop are ignored.
	src.onSamples(make([]float32, 8192))
}

func TestCaptureStopBeforeStart(t *testing.T) {
	src := &fakeSource{}
	c := NewCapture(DefaultCaptureConfig(), src, func(pcm.Frame) {}, nil)
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if src.stops != 0 {
		t.Errorf("device stopped without being started")
	}
	// Start after stop stays inert.
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if src.starts != 0 {
		t.Errorf("device started after capture was stopped")
	}
}

func TestCaptureLevels(t *testing.T) {
	src := &fakeSource{}
	var levels []Level
	c := NewCapture(DefaultCaptureConfig(), src, func(pcm.Frame) {}, func(l Level) {
		levels = append(levels, l)
	})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	block := make([]float32, 4096)
	for i := range block {
		block[i] = 0.5
	}
	src.onSamples(block)

	if len(levels) != 1 {
		t.Fatalf("levels reported = %d, want 1", len(levels))
	}
	if got := levels[0].Peak; got != 0.5 {
		t.Errorf("peak = %v, want 0.5", got)
	}
	if got := levels[0].RMS; got < 0.499 || got > 0.501 {
		t.Errorf("rms = %v, want ~0.5", got)
	}
}
