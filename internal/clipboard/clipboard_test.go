package clipboard

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToolsFor(t *testing.T) {
	if got := toolsFor("darwin", ""); got[0].Name != "pbcopy" {
		t.Fatalf("darwin = %+v", got)
	}
	if got := toolsFor("linux", "Wayland"); got[0].Name != "wl-copy" {
		t.Fatalf("wayland = %+v", got)
	}
	if got := toolsFor("linux", "x11"); got[0].Name != "xclip" {
		t.Fatalf("x11 = %+v", got)
	}
}

func TestCopyUsesFirstInstalledTool(t *testing.T) {
	var got []string
	c := &Clipboard{
		tools: toolsFor("linux", "x11"),
		lookPath: func(name string) (string, error) {
			if name == "xclip" {
				return "", errors.New("not found")
			}
			return "/usr/bin/" + name, nil
		},
		run: func(t Tool, text string) error {
			got = append(got, t.Name, text)
			return nil
		},
	}
	if err := c.Copy("Bonjour"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if diff := cmp.Diff([]string{"wl-copy", "Bonjour"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestCopyWithoutTools(t *testing.T) {
	c := &Clipboard{
		tools:    toolsFor("linux", ""),
		lookPath: func(string) (string, error) { return "", errors.New("not found") },
	}
	if err := c.Copy("x"); !errors.Is(err, ErrNoClipboardTool) {
		t.Fatalf("err = %v", err)
	}
}
