package audio

import (
	"math"
	"sync"
	"time"
)

const (
	levelThrottle = 25 * time.Millisecond

	// recentMax decays per emit (~40 emits/s), roughly halving every 4s
	levelDecay      = 0.993
	levelNoiseFloor = 0.01
	levelSmoothing  = 0.4 // EMA alpha
)

// LevelMeter turns PCM16 mono buffers into a normalized [0,1] input level
// for the progress display. It auto-ranges to the microphone by tracking the
// recent peak.
type LevelMeter struct {
	mu        sync.Mutex
	recentMax float64
	smoothed  float64
	peakSince float64
	lastEmit  time.Time
	now       func() time.Time
	levels    chan float64
}

func NewLevelMeter() *LevelMeter {
	return &LevelMeter{
		recentMax: levelNoiseFloor,
		now:       time.Now,
		levels:    make(chan float64, 16),
	}
}

// Levels delivers throttled level updates; slow readers miss updates
func (m *LevelMeter) Levels() <-chan float64 {
	return m.levels
}

// Reset clears the smoothing state between recordings
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentMax = levelNoiseFloor
	m.smoothed = 0
	m.peakSince = 0
	m.lastEmit = time.Time{}
}

// Process feeds one capture buffer
func (m *LevelMeter) Process(pcm []byte) {
	if len(pcm) < 2 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if peak := peakOf(pcm); peak > m.peakSince {
		m.peakSince = peak
	}

	now := m.now()
	if now.Sub(m.lastEmit) < levelThrottle {
		return
	}
	m.lastEmit = now

	peak := m.peakSince
	m.peakSince = 0

	if peak > m.recentMax {
		m.recentMax = peak
	} else {
		m.recentMax *= levelDecay
	}
	if m.recentMax < levelNoiseFloor {
		m.recentMax = levelNoiseFloor
	}

	level := 0.0
	if peak > levelNoiseFloor {
		level = math.Min(peak/m.recentMax, 1.0)
	}
	m.smoothed = levelSmoothing*level + (1-levelSmoothing)*m.smoothed

	select {
	case m.levels <- m.smoothed:
	default:
	}
}

// peakOf returns the largest absolute sample of a PCM16 LE buffer in [0,1]
func peakOf(pcm []byte) float64 {
	var maxSample float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		if v := math.Abs(float64(s)); v > maxSample {
			maxSample = v
		}
	}
	return maxSample / 32768.0
}
