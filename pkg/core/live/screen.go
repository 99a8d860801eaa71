package live

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

// FrameGrabber produces one raw display frame per call. The production
// grabber reads the primary display; tests return canned images.
type FrameGrabber interface {
	Grab() (image.Image, error)
}

// grabFailureLimit is the number of consecutive grab failures before the
// share concludes the display is gone and stops itself.
const grabFailureLimit = 3

// ScreenShare periodically grabs the display, downscales wide frames, and
// emits JPEG payloads. Frames wider than the configured maximum are scaled
// down preserving aspect ratio; narrower frames pass through at native size.
//
// When the display stops producing frames (disconnected, or capture revoked
// by the OS) the share stops itself and notifies onStopped, so an external
// stop routes through the same path as Stop.
type ScreenShare struct {
	cfg       ScreenConfig
	grabber   FrameGrabber
	emit      func(jpegData []byte)
	onStopped func()

	mu       sync.Mutex
	running  bool
	paused   bool
	failures int
	done     chan struct{}
}

// NewScreenShare returns a ScreenShare sending encoded frames to emit.
// onStopped, which may be nil, is invoked when the share stops itself
// because the display went away; it is never invoked for an explicit Stop.
func NewScreenShare(cfg ScreenConfig, grabber FrameGrabber, emit func([]byte), onStopped func()) *ScreenShare {
	return &ScreenShare{cfg: cfg, grabber: grabber, emit: emit, onStopped: onStopped}
}

// Start begins the capture loop. No-op if already running.
func (s *ScreenShare) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.paused = false
	s.failures = 0
	s.done = make(chan struct{})
	go s.loop(s.done)
}

// Pause suspends frame emission without releasing the loop.
func (s *ScreenShare) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume reverses Pause.
func (s *ScreenShare) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Stop ends the capture loop. A tick already in flight when Stop is called
// emits nothing. Idempotent.
func (s *ScreenShare) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// Running reports whether the capture loop is active.
func (s *ScreenShare) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ScreenShare) loop(done chan struct{}) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick grabs, encodes, and emits one frame. A single grab failure and ticks
// that land after Stop or during Pause are silent no-ops; persistent grab
// failures stop the share.
func (s *ScreenShare) tick() {
	s.mu.Lock()
	if !s.running || s.paused {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	img, err := s.grabber.Grab()
	if err != nil || img == nil {
		s.grabFailed()
		return
	}
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
	data, err := encodeFrame(img, s.cfg.MaxWidth, s.cfg.JPEGQuality)
	if err != nil {
		return
	}

	// Re-check after the grab: Stop may have landed mid-tick.
	s.mu.Lock()
	running := s.running && !s.paused
	s.mu.Unlock()
	if running {
		s.emit(data)
	}
}

// grabFailed counts a failed grab and, once the limit is hit, stops the
// share and notifies the owner. The transition happens atomically so a
// concurrent explicit Stop never produces a second notification.
func (s *ScreenShare) grabFailed() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.failures++
	if s.failures < grabFailureLimit {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done != nil {
		close(done)
	}
	if s.onStopped != nil {
		s.onStopped()
	}
}

func encodeFrame(img image.Image, maxWidth, quality int) ([]byte, error) {
	bounds := img.Bounds()
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		h := bounds.Dy() * maxWidth / bounds.Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
