// Package keyboard listens for a global hotkey that toggles recording, also
// when the terminal is not focused. It reads evdev devices, so the user must
// be in the input group.
package keyboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarinX/keylogger"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/types"
)

const debounceInterval = 500 * time.Millisecond

// ModifierState tracks the state of modifier keys (Ctrl, Shift, Alt, Super)
type ModifierState struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Super bool
}

// matcher turns a stream of key events into hotkey hits
type matcher struct {
	binding   types.KeyBinding
	target    uint16
	modifiers ModifierState
	last      time.Time
	now       func() time.Time
}

func newMatcher(binding types.KeyBinding) (*matcher, error) {
	code, ok := KeyCodes[strings.ToLower(binding.Key)]
	if !ok {
		return nil, fmt.Errorf("unsupported hotkey key %q", binding.Key)
	}
	return &matcher{binding: binding, target: code, now: time.Now}, nil
}

// feed processes one key event and reports whether the hotkey fired
func (m *matcher) feed(code uint16, pressed bool) bool {
	switch code {
	case LeftControl, RightControl:
		m.modifiers.Ctrl = pressed
	case LeftShift, RightShift:
		m.modifiers.Shift = pressed
	case LeftAlt, RightAlt:
		m.modifiers.Alt = pressed
	case LeftSuper, RightSuper:
		m.modifiers.Super = pressed
	default:
		if !pressed || code != m.target || !m.modifiersMatch() {
			return false
		}
		now := m.now()
		if !m.last.IsZero() && now.Sub(m.last) <= debounceInterval {
			logger.Debugf("Hotkey ignored, %d ms after the previous one", now.Sub(m.last).Milliseconds())
			return false
		}
		m.last = now
		return true
	}
	return false
}

func (m *matcher) modifiersMatch() bool {
	return m.modifiers.Ctrl == m.binding.Ctrl &&
		m.modifiers.Shift == m.binding.Shift &&
		m.modifiers.Alt == m.binding.Alt &&
		m.modifiers.Super == m.binding.Super
}

// Monitor calls toggle whenever the configured hotkey is pressed
type Monitor struct {
	matcher *matcher
	toggle  func() error

	mu       sync.Mutex
	keyboard *keylogger.KeyLogger
}

func NewMonitor(binding types.KeyBinding, toggle func() error) (*Monitor, error) {
	m, err := newMatcher(binding)
	if err != nil {
		return nil, err
	}
	return &Monitor{matcher: m, toggle: toggle}, nil
}

// Start reads the first keyboard device until ctx is done
func (m *Monitor) Start(ctx context.Context) error {
	keyboards := keylogger.FindAllKeyboardDevices()
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found")
	}

	kbd, err := keylogger.New(keyboards[0])
	if err != nil {
		if strings.Contains(err.Error(), "permission denied") {
			logger.Warn("Cannot access keyboard device. Add yourself to the input group: sudo usermod -aG input $USER, then log in again.")
		}
		return fmt.Errorf("error initializing keylogger: %w", err)
	}
	m.mu.Lock()
	m.keyboard = kbd
	m.mu.Unlock()
	defer m.Stop()

	logger.Infof("Hotkey %s toggles recording", FormatBinding(m.matcher.binding))

	events := kbd.Read()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if e.Type != keylogger.EvKey {
				continue
			}
			if !e.KeyPress() && !e.KeyRelease() {
				continue
			}
			if m.matcher.feed(e.Code, e.KeyPress()) {
				logger.Debug("Hotkey pressed, toggling recording")
				if err := m.toggle(); err != nil {
					logger.Debugf("Toggle from hotkey failed: %v", err)
				}
			}
		}
	}
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keyboard != nil {
		m.keyboard.Close()
		m.keyboard = nil
	}
}

// FormatBinding formats a key combination into a human-readable string
func FormatBinding(b types.KeyBinding) string {
	var parts []string
	if b.Ctrl {
		parts = append(parts, "CTRL")
	}
	if b.Shift {
		parts = append(parts, "SHIFT")
	}
	if b.Alt {
		parts = append(parts, "ALT")
	}
	if b.Super {
		parts = append(parts, "SUPER")
	}
	if b.Key != "" {
		parts = append(parts, strings.ToUpper(b.Key))
	}
	return strings.Join(parts, " + ")
}
