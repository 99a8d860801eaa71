package live

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Microphone is a malgo-backed BlockSource capturing 16-bit mono audio and
// delivering it as normalized float samples.
type Microphone struct {
	audio AudioConfig

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
}

// NewMicrophone prepares a capture source at the given format. The device
// is not opened until Start.
func NewMicrophone(audio AudioConfig) *Microphone {
	return &Microphone{audio: audio}
}

// Start implements BlockSource.
func (m *Microphone) Start(onSamples func([]float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	ctx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return newError(KindDevice, "Could not initialize the audio system.", fmt.Errorf("malgo: %w", err))
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.audio.Channels)
	deviceConfig.SampleRate = uint32(m.audio.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			samples := make([]float32, len(input)/2)
			for i := range samples {
				v := int16(input[i*2]) | int16(input[i*2+1])<<8
				samples[i] = float32(v) / 32768
			}
			onSamples(samples)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return newError(KindDevice, "Could not open the microphone.", fmt.Errorf("malgo: %w", err))
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return newError(KindDevice, "Could not start the microphone.", fmt.Errorf("malgo: %w", err))
	}

	m.ctx = ctx
	m.device = device
	return nil
}

// Stop implements BlockSource.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		m.device.Stop()
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
	return nil
}
