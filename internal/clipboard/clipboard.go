// Package clipboard copies reply text to the system clipboard
package clipboard

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/dooshek/voiceassist/internal/logger"
)

var ErrNoClipboardTool = errors.New("no clipboard tool found, install wl-clipboard or xclip")

// Tool is a command that reads the text to copy from stdin
type Tool struct {
	Name string
	Args []string
}

// Clipboard writes text through the first available tool
type Clipboard struct {
	tools    []Tool
	lookPath func(string) (string, error)
	run      func(t Tool, text string) error
}

func New() *Clipboard {
	return &Clipboard{
		tools:    toolsFor(runtime.GOOS, os.Getenv("XDG_SESSION_TYPE")),
		lookPath: exec.LookPath,
		run:      runTool,
	}
}

func toolsFor(goos, session string) []Tool {
	if goos == "darwin" {
		return []Tool{{Name: "pbcopy"}}
	}
	x11 := Tool{Name: "xclip", Args: []string{"-selection", "clipboard"}}
	wayland := Tool{Name: "wl-copy"}
	if strings.ToLower(session) == "wayland" {
		return []Tool{wayland, x11}
	}
	return []Tool{x11, wayland}
}

// Copy copies text to the clipboard
func (c *Clipboard) Copy(text string) error {
	logger.Debugf("clipboard: Copy: %d bytes", len(text))
	for _, t := range c.tools {
		if _, err := c.lookPath(t.Name); err != nil {
			continue
		}
		return c.run(t, text)
	}
	return ErrNoClipboardTool
}

func runTool(t Tool, text string) error {
	cmd := exec.Command(t.Name, t.Args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
