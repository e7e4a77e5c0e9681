package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/pkg/wav"
	"github.com/gen2brain/malgo"
)

const (
	sampleRate = 16000
	channels   = 1
)

// ErrNotCapturing is returned by End without a matching Begin
var ErrNotCapturing = errors.New("microphone is not capturing")

// Microphone is the capture device. It is opened on the first Acquire and
// kept open for the rest of the process; Begin/End only switch buffering.
type Microphone struct {
	mu        sync.Mutex
	ctx       *malgo.AllocatedContext
	device    *malgo.Device
	capturing bool
	buffer    bytes.Buffer
	meter     *LevelMeter
}

func NewMicrophone() *Microphone {
	return &Microphone{meter: NewLevelMeter()}
}

// Format is the PCM format End returns
func (m *Microphone) Format() wav.Format {
	return wav.Format{Channels: channels, SampleRate: sampleRate}
}

// Levels streams input levels while capturing
func (m *Microphone) Levels() <-chan float64 {
	return m.meter.Levels()
}

// Acquire opens the default capture device once
func (m *Microphone) Acquire() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debugf("malgo: %s", message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: m.onData,
	})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	m.ctx = ctx
	m.device = device
	logger.Debug("Microphone opened")
	return nil
}

// Begin starts buffering captured audio
func (m *Microphone) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return fmt.Errorf("microphone not acquired")
	}
	m.buffer.Reset()
	m.meter.Reset()
	m.capturing = true
	return nil
}

// End stops buffering and returns the captured PCM
func (m *Microphone) End() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.capturing {
		return nil, ErrNotCapturing
	}
	m.capturing = false

	pcm := make([]byte, m.buffer.Len())
	copy(pcm, m.buffer.Bytes())
	m.buffer.Reset()
	return pcm, nil
}

// Close releases the device. Only used on shutdown.
func (m *Microphone) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.ctx != nil {
		m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
}

func (m *Microphone) onData(_, input []byte, _ uint32) {
	m.mu.Lock()
	if !m.capturing {
		m.mu.Unlock()
		return
	}
	m.buffer.Write(input)
	m.mu.Unlock()

	m.meter.Process(input)
}
