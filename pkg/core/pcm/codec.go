// Package pcm converts between raw audio sample buffers and the wire
// encoding used by the live session transport: 16-bit signed little-endian
// PCM wrapped in base64.
package pcm

import (
	"encoding/base64"
	"fmt"
)

const (
	// CaptureMIMEType tags outbound microphone frames.
	CaptureMIMEType = "audio/pcm;rate=16000"

	// CaptureSampleRate is the sample rate for outbound audio in Hz.
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the sample rate of synthesized audio in Hz.
	PlaybackSampleRate = 24000

	bytesPerSample = 2
)

// Frame is an immutable unit of outbound audio, ready for transmission.
type Frame struct {
	// MIMEType describes the encoding, e.g. "audio/pcm;rate=16000".
	MIMEType string

	// Data is the base64-encoded 16-bit little-endian PCM payload.
	Data string
}

// EncodeFrame converts float32 samples in [-1, 1] to a wire frame.
// Out-of-range samples are clipped to full scale rather than wrapped.
func EncodeFrame(samples []float32) Frame {
	raw := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		v := int32(s * 32768)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		raw[i*2] = byte(v)
		raw[i*2+1] = byte(v >> 8)
	}
	return Frame{
		MIMEType: CaptureMIMEType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
}

// DecodeFrame unpacks little-endian 16-bit PCM bytes into samples.
// A trailing odd byte is ignored.
func DecodeFrame(raw []byte) []int16 {
	samples := make([]int16, len(raw)/bytesPerSample)
	for i := range samples {
		samples[i] = int16(raw[i*2]) | int16(raw[i*2+1])<<8
	}
	return samples
}

// Buffer is decoded audio ready for playback scheduling: one float slice per
// channel, normalized to [-1, 1].
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// FrameCount returns the number of sample frames per channel.
func (b *Buffer) FrameCount() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.FrameCount()) / float64(b.SampleRate)
}

// PCMToFloatBuffer de-interleaves 16-bit PCM samples into per-channel float
// buffers normalized by 1/32768. The sample count must divide evenly by the
// channel count.
func PCMToFloatBuffer(samples []int16, channels, sampleRate int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("pcm: channel count must be positive, got %d", channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("pcm: sample rate must be positive, got %d", sampleRate)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("pcm: %d samples not divisible by %d channels", len(samples), channels)
	}

	frames := len(samples) / channels
	out := &Buffer{
		Channels:   make([][]float32, channels),
		SampleRate: sampleRate,
	}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float32, frames)
	}
	for i, s := range samples {
		out.Channels[i%channels][i/channels] = float32(s) / 32768
	}
	return out, nil
}

// InterleaveS16LE packs a playback buffer back into interleaved 16-bit
// little-endian bytes for the output device.
func InterleaveS16LE(b *Buffer) []byte {
	if b == nil || len(b.Channels) == 0 {
		return nil
	}
	frames := b.FrameCount()
	channels := len(b.Channels)
	out := make([]byte, frames*channels*bytesPerSample)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			v := int32(b.Channels[ch][f] * 32768)
			if v > 32767 {
				v = 32767
			}
			if v < -32768 {
				v = -32768
			}
			idx := (f*channels + ch) * bytesPerSample
			out[idx] = byte(v)
			out[idx+1] = byte(v >> 8)
		}
	}
	return out
}
