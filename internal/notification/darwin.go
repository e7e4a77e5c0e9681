package notification

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/dooshek/voiceassist/internal/logger"
)

type darwinNotifier struct{}

func newDarwinNotifier() platformNotifier {
	return &darwinNotifier{}
}

func (n *darwinNotifier) send(title, message string) error {
	logger.Debugf("Sending macOS notification: %s - %s", title, message)
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
	cmd := exec.Command("osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		logger.Error("Failed to send macOS notification", err)
		return err
	}
	return nil
}

func (n *darwinNotifier) playStartBeep() error {
	return exec.Command("afplay", "/System/Library/Sounds/Ping.aiff").Start()
}

func (n *darwinNotifier) playStopBeep() error {
	return exec.Command("afplay", "/System/Library/Sounds/Glass.aiff").Start()
}

func (n *darwinNotifier) playErrorBeep() error {
	return exec.Command("afplay", "/System/Library/Sounds/Basso.aiff").Start()
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
