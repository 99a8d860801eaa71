package live

import (
	"math"
	"sync"

	"github.com/vango-go/codedrill/pkg/core/pcm"
)

// BlockSource delivers normalized capture samples as they arrive from a
// device. The production source is a malgo microphone; tests push samples
// directly.
type BlockSource interface {
	// Start begins delivery. onSamples may be called from a device thread
	// with any block size.
	Start(onSamples func([]float32)) error
	// Stop ends delivery and releases the device.
	Stop() error
}

// Level summarizes the energy of one emitted block, for UI metering.
type Level struct {
	RMS  float64
	Peak float64
}

// Capture accumulates microphone samples into fixed-size blocks, encodes
// each full block as a wire frame, and hands it to the emit callback. While
// muted, incoming samples are discarded so no frames leave the machine.
type Capture struct {
	cfg     CaptureConfig
	source  BlockSource
	emit    func(pcm.Frame)
	onLevel func(Level)

	mu      sync.Mutex
	pending []float32
	muted   bool
	started bool
	stopped bool
}

// NewCapture returns a Capture reading from source. emit receives each
// encoded frame; onLevel, if non-nil, receives per-block energy readings.
func NewCapture(cfg CaptureConfig, source BlockSource, emit func(pcm.Frame), onLevel func(Level)) *Capture {
	return &Capture{
		cfg:     cfg,
		source:  source,
		emit:    emit,
		onLevel: onLevel,
		pending: make([]float32, 0, cfg.BlockSize),
	}
}

// Start opens the device and begins streaming frames.
func (c *Capture) Start() error {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if err := c.source.Start(c.push); err != nil {
		return Classify(err, "starting microphone")
	}
	return nil
}

// Stop releases the device. Safe to call any number of times, including
// before Start; the device is only stopped once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	wasStarted := c.started
	c.pending = nil
	c.mu.Unlock()

	if !wasStarted {
		return nil
	}
	return c.source.Stop()
}

// SetMuted flips the mute flag. Returns the previous value.
func (c *Capture) SetMuted(muted bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.muted
	c.muted = muted
	if muted {
		// Drop the partial block so unmuting starts clean.
		c.pending = c.pending[:0]
	}
	return prev
}

// Muted reports the current mute state.
func (c *Capture) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *Capture) push(samples []float32) {
	c.mu.Lock()
	if c.stopped || c.muted {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, samples...)

	var blocks [][]float32
	for len(c.pending) >= c.cfg.BlockSize {
		block := make([]float32, c.cfg.BlockSize)
		copy(block, c.pending[:c.cfg.BlockSize])
		c.pending = c.pending[c.cfg.BlockSize:]
		blocks = append(blocks, block)
	}
	c.mu.Unlock()

	for _, block := range blocks {
		c.emit(pcm.EncodeFrame(block))
		if c.onLevel != nil {
			c.onLevel(measure(block))
		}
	}
}

func measure(block []float32) Level {
	var sum, peak float64
	for _, s := range block {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	rms := 0.0
	if len(block) > 0 {
		rms = math.Sqrt(sum / float64(len(block)))
	}
	return Level{RMS: rms, Peak: peak}
}
