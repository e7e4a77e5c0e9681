package notification

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dooshek/voiceassist/internal/logger"
)

const soundThemeDir = "/usr/share/sounds/freedesktop/stereo"

type linuxNotifier struct {
	soundDir string
}

func newLinuxNotifier() platformNotifier {
	return &linuxNotifier{soundDir: soundThemeDir}
}

func (n *linuxNotifier) send(title, message string) error {
	logger.Debugf("Sending notification: %s - %s", title, message)
	go func() {
		if err := exec.Command("notify-send", "-a", appTitle, title, message).Run(); err != nil {
			logger.Error("Failed to send notification", err)
		}
	}()
	return nil
}

func (n *linuxNotifier) playStartBeep() error {
	return n.play("message-new-instant.oga")
}

func (n *linuxNotifier) playStopBeep() error {
	return n.play("complete.oga")
}

func (n *linuxNotifier) playErrorBeep() error {
	return n.play("dialog-error.oga")
}

// play runs paplay in the background. A missing theme file is not an error.
func (n *linuxNotifier) play(name string) error {
	path := filepath.Join(n.soundDir, name)
	if _, err := os.Stat(path); err != nil {
		logger.Debugf("Sound %s not available: %v", path, err)
		return nil
	}
	go func() {
		if err := exec.Command("paplay", path).Run(); err != nil {
			logger.Errorf("Failed to play %s", err, name)
		}
	}()
	return nil
}
