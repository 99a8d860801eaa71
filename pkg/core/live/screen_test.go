package live

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
)

type fakeGrabber struct {
	mu    sync.Mutex
	img   image.Image
	err   error
	grabs int
}

func (g *fakeGrabber) Grab() (image.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grabs++
	return g.img, g.err
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	return img
}

func newTestShare(grabber FrameGrabber) (*ScreenShare, *[][]byte) {
	var emitted [][]byte
	s := NewScreenShare(DefaultScreenConfig(), grabber, func(data []byte) {
		emitted = append(emitted, data)
	}, nil)
	return s, &emitted
}

func decodeEmitted(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("emitted frame is not valid JPEG: %v", err)
	}
	return img
}

func TestScreenShareDownscalesWideFrames(t *testing.T) {
	grabber := &fakeGrabber{img: solidImage(2560, 1440)}
	s, emitted := newTestShare(grabber)
	s.running = true
	s.tick()
	s.running = false

	if len(*emitted) != 1 {
		t.Fatalf("emitted %d frames, want 1", len(*emitted))
	}
	img := decodeEmitted(t, (*emitted)[0])
	if got := img.Bounds().Dx(); got != 1280 {
		t.Errorf("width = %d, want 1280", got)
	}
	if got := img.Bounds().Dy(); got != 720 {
		t.Errorf("height = %d, want 720 (aspect preserved)", got)
	}
}

func TestScreenShareNeverUpscales(t *testing.T) {
	grabber := &fakeGrabber{img: solidImage(800, 600)}
	s, emitted := newTestShare(grabber)
	s.running = true
	s.tick()
	s.running = false

	if len(*emitted) != 1 {
		t.Fatalf("emitted %d frames, want 1", len(*emitted))
	}
	img := decodeEmitted(t, (*emitted)[0])
	if got := img.Bounds().Dx(); got != 800 {
		t.Errorf("width = %d, want 800 (no upscale)", got)
	}
	if got := img.Bounds().Dy(); got != 600 {
		t.Errorf("height = %d, want 600", got)
	}
}

func TestScreenShareTickAfterStopIsNoOp(t *testing.T) {
	grabber := &fakeGrabber{img: solidImage(100, 100)}
	s, emitted := newTestShare(grabber)

	// Not running: a stray tick must neither grab nor emit.
	s.tick()
	if grabber.grabs != 0 {
		t.Errorf("stopped share grabbed the display")
	}
	if len(*emitted) != 0 {
		t.Errorf("stopped share emitted a frame")
	}
}

func TestScreenSharePause(t *testing.T) {
	grabber := &fakeGrabber{img: solidImage(100, 100)}
	s, emitted := newTestShare(grabber)
	s.running = true

	s.Pause()
	s.tick()
	if len(*emitted) != 0 {
		t.Fatalf("paused share emitted a frame")
	}

	s.Resume()
	s.tick()
	if len(*emitted) != 1 {
		t.Errorf("resumed share emitted %d frames, want 1", len(*emitted))
	}
	s.running = false
}

func TestScreenShareGrabFailureIsSilent(t *testing.T) {
	grabber := &fakeGrabber{err: errors.New("display disconnected")}
	s, emitted := newTestShare(grabber)
	s.running = true
	s.tick()
	s.running = false

	if len(*emitted) != 0 {
		t.Errorf("grab failure emitted a frame")
	}
}

func TestScreenShareStopsWhenDisplayLost(t *testing.T) {
	grabber := &fakeGrabber{img: solidImage(100, 100)}
	stops := 0
	s := NewScreenShare(DefaultScreenConfig(), grabber, func([]byte) {}, func() {
		stops++
	})
	s.running = true

	// One good frame resets the failure count.
	s.tick()
	grabber.mu.Lock()
	grabber.img = nil
	grabber.err = errors.New("display disconnected")
	grabber.mu.Unlock()

	for i := 0; i < grabFailureLimit; i++ {
		if !s.Running() {
			t.Fatalf("share stopped after %d failures, want %d", i, grabFailureLimit)
		}
		s.tick()
	}
	if s.Running() {
		t.Error("share still running after persistent grab failures")
	}
	if stops != 1 {
		t.Errorf("stop callback fired %d times, want 1", stops)
	}

	// A stale tick after the self-stop must not notify again.
	s.tick()
	if stops != 1 {
		t.Errorf("stop callback fired %d times after stale tick, want 1", stops)
	}
}

func TestScreenShareStartStopIdempotent(t *testing.T) {
	grabber := &fakeGrabber{img: solidImage(100, 100)}
	s, _ := newTestShare(grabber)

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("share not running after Start")
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("share still running after Stop")
	}
}
