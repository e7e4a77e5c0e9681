package notification

import (
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/dooshek/voiceassist/internal/logger"
)

const (
	appTitle       = "Voice Assistant"
	maxMessageRune = 200
)

// Notifier defines the interface for system notifications
type Notifier interface {
	NotifyRecordingStarted(character string) error
	NotifyProcessing() error
	NotifyResponse(character, text string) error
	NotifyError(err error) error
	Notify(title, message string) error
	PlayStartBeep() error
	PlayStopBeep() error
	PlayErrorBeep() error
}

// SilentNotifier is a no-op implementation for --no-notify and tests
type SilentNotifier struct{}

func NewSilent() Notifier {
	return &SilentNotifier{}
}

func (s *SilentNotifier) NotifyRecordingStarted(string) error { return nil }
func (s *SilentNotifier) NotifyProcessing() error              { return nil }
func (s *SilentNotifier) NotifyResponse(string, string) error  { return nil }
func (s *SilentNotifier) NotifyError(error) error              { return nil }
func (s *SilentNotifier) Notify(string, string) error          { return nil }
func (s *SilentNotifier) PlayStartBeep() error                 { return nil }
func (s *SilentNotifier) PlayStopBeep() error                  { return nil }
func (s *SilentNotifier) PlayErrorBeep() error                 { return nil }

type baseNotifier struct {
	platform platformNotifier
}

type platformNotifier interface {
	send(title, message string) error
	playStartBeep() error
	playStopBeep() error
	playErrorBeep() error
}

// New creates a new platform-specific notification service
func New() Notifier {
	logger.Debug("Initializing notification system")
	var platform platformNotifier
	switch runtime.GOOS {
	case "darwin":
		logger.Debug("Using Darwin (macOS) notifier")
		platform = newDarwinNotifier()
	default:
		logger.Debug("Using Linux notifier")
		platform = newLinuxNotifier()
	}
	return &baseNotifier{platform: platform}
}

func (n *baseNotifier) NotifyRecordingStarted(character string) error {
	logger.Debug("Sending recording started notification")
	return n.Notify(appTitle, "Recording for "+character+"...")
}

func (n *baseNotifier) NotifyProcessing() error {
	return n.Notify(appTitle, "Processing...")
}

func (n *baseNotifier) NotifyResponse(character, text string) error {
	return n.Notify(character, summarize(text, maxMessageRune))
}

func (n *baseNotifier) NotifyError(err error) error {
	if err == nil {
		return nil
	}
	return n.Notify(appTitle+" error", summarize(err.Error(), maxMessageRune))
}

func (n *baseNotifier) Notify(title, message string) error {
	return n.platform.send(title, message)
}

func (n *baseNotifier) PlayStartBeep() error {
	return n.platform.playStartBeep()
}

func (n *baseNotifier) PlayStopBeep() error {
	return n.platform.playStopBeep()
}

func (n *baseNotifier) PlayErrorBeep() error {
	return n.platform.playErrorBeep()
}

// summarize collapses whitespace and cuts text to max runes
func summarize(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-1]) + "…"
}

// WithoutSounds keeps the desktop notifications of n but drops its beeps
func WithoutSounds(n Notifier) Notifier {
	return quietNotifier{n}
}

type quietNotifier struct {
	Notifier
}

func (quietNotifier) PlayStartBeep() error { return nil }
func (quietNotifier) PlayStopBeep() error  { return nil }
func (quietNotifier) PlayErrorBeep() error { return nil }
