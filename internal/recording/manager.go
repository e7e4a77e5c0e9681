// Package recording runs one recording session at a time:
// idle -> recording -> processing -> idle.
package recording

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dooshek/voiceassist/internal/audio"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/state"
)

// ProcessingLabel is shown while a finished recording is being submitted
const ProcessingLabel = "Processing..."

var (
	ErrNoSelection           = state.ErrNoSelection
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")
)

type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return "idle"
	}
}

// Capturer is the microphone as seen by the manager
type Capturer interface {
	Acquire() error
	Begin() error
	End() ([]byte, error)
}

// EncodeFunc packages captured PCM for upload
type EncodeFunc func(pcm []byte) (audio.Clip, error)

// Ticker drives the elapsed counter. time.Ticker satisfies it through
// NewTicker; tests inject a manual one.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker wraps time.NewTicker
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Progress is what the progress bar shows
type Progress struct {
	State   State
	Elapsed int // seconds
	Max     int // seconds
	Label   string
}

// Fraction is the filled share of the progress bar
func (p Progress) Fraction() float64 {
	if p.Max <= 0 {
		return 0
	}
	return float64(p.Elapsed) / float64(p.Max)
}

// Take is a finished recording together with the selection it was started
// with.
type Take struct {
	Selection state.Selection
	Clip      audio.Clip
	Err       error
}

type Option func(*Manager)

func WithTicker(f func(time.Duration) Ticker) Option {
	return func(m *Manager) { m.newTicker = f }
}

// OnProgress is called on every state change and tick
func OnProgress(f func(Progress)) Option {
	return func(m *Manager) { m.onProgress = f }
}

// OnFinished receives every take, including failed ones
func OnFinished(f func(Take)) Option {
	return func(m *Manager) { m.onFinished = f }
}

type Manager struct {
	mu        sync.Mutex
	capturer  Capturer
	encode    EncodeFunc
	maxSecs   int
	newTicker func(time.Duration) Ticker

	acquired  bool
	state     State
	elapsed   int
	selection state.Selection
	stop      chan struct{}

	onProgress func(Progress)
	onFinished func(Take)
}

func NewManager(capturer Capturer, encode EncodeFunc, max time.Duration, opts ...Option) *Manager {
	secs := int(max / time.Second)
	if secs < 1 {
		secs = 1
	}
	m := &Manager{
		capturer:   capturer,
		encode:     encode,
		maxSecs:    secs,
		newTicker:  NewTicker,
		onProgress: func(Progress) {},
		onFinished: func(Take) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progressLocked()
}

// Start begins a session for sel. Calling it while a session is recording or
// processing does nothing.
func (m *Manager) Start(sel state.Selection) error {
	m.mu.Lock()
	if cur := m.state; cur != Idle {
		m.mu.Unlock()
		logger.Debugf("Start ignored, session is %s", cur)
		return nil
	}
	if !sel.Complete() {
		m.mu.Unlock()
		return ErrNoSelection
	}

	if !m.acquired {
		if err := m.capturer.Acquire(); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
		}
		m.acquired = true
	}
	if err := m.capturer.Begin(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
	}

	m.state = Recording
	m.elapsed = 0
	m.selection = sel
	m.stop = make(chan struct{})
	ticker := m.newTicker(time.Second)
	go m.run(ticker, m.stop)

	p := m.progressLocked()
	m.mu.Unlock()

	logger.Infof("Recording started for %s (%s)", sel.Character, sel.Language)
	m.onProgress(p)
	return nil
}

// Stop ends the current recording and hands the take to OnFinished. The
// manager stays in processing until Done.
func (m *Manager) Stop() {
	m.finish()
}

// Toggle starts when idle and stops when recording
func (m *Manager) Toggle(sel state.Selection) error {
	switch m.State() {
	case Idle:
		return m.Start(sel)
	case Recording:
		m.Stop()
	}
	return nil
}

// Done returns the manager to idle once the take has been submitted
func (m *Manager) Done() {
	m.mu.Lock()
	if m.state != Processing {
		m.mu.Unlock()
		return
	}
	m.state = Idle
	m.elapsed = 0
	m.selection = state.Selection{}
	p := m.progressLocked()
	m.mu.Unlock()

	m.onProgress(p)
}

func (m *Manager) run(t Ticker, stop <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			if m.tick(stop) {
				m.finish()
				return
			}
		}
	}
}

// tick advances elapsed and reports whether the maximum was reached
func (m *Manager) tick(stop <-chan struct{}) bool {
	m.mu.Lock()
	if m.state != Recording || m.stop != stop {
		m.mu.Unlock()
		return false
	}
	m.elapsed++
	p := m.progressLocked()
	reached := m.elapsed >= m.maxSecs
	m.mu.Unlock()

	m.onProgress(p)
	if reached {
		logger.Infof("Maximum recording time of %ds reached", m.maxSecs)
	}
	return reached
}

func (m *Manager) finish() {
	m.mu.Lock()
	if m.state != Recording {
		m.mu.Unlock()
		return
	}
	m.state = Processing
	close(m.stop)
	pcm, err := m.capturer.End()
	sel := m.selection
	p := m.progressLocked()
	m.mu.Unlock()

	m.onProgress(p)

	take := Take{Selection: sel}
	if err != nil {
		take.Err = fmt.Errorf("error finishing capture: %w", err)
	} else if take.Clip, err = m.encode(pcm); err != nil {
		take.Err = err
	} else {
		logger.Infof("Recording stopped, %.1fs captured", take.Clip.Duration.Seconds())
	}
	m.onFinished(take)
}

func (m *Manager) progressLocked() Progress {
	p := Progress{State: m.state, Max: m.maxSecs}
	switch m.state {
	case Recording:
		p.Elapsed = m.elapsed
	case Processing:
		p.Elapsed = m.elapsed
		p.Label = ProcessingLabel
	}
	return p
}
