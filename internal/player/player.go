// Package player plays reply audio returned by the backend
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
	"sync"

	"github.com/dooshek/voiceassist/internal/logger"
)

var ErrNoPlayer = errors.New("no suitable audio player found")

// Downloader fetches a backend audio reference
type Downloader interface {
	Download(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Runner runs an external player until it exits
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

type Player struct {
	dl        Downloader
	preferred string
	run       Runner

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a player. preferred, when set, is tried before the built-in
// list.
func New(dl Downloader, preferred string) *Player {
	return &Player{dl: dl, preferred: preferred, run: execRunner}
}

// Play downloads ref and plays it, interrupting any playback still running
func (p *Player) Play(ctx context.Context, ref string) error {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	file, err := p.fetch(ctx, ref)
	if err != nil {
		return err
	}
	defer os.Remove(file)

	for _, argv := range candidates(p.preferred, file) {
		err := p.run(ctx, argv[0], argv[1:]...)
		if err == nil {
			logger.Debugf("Reply audio played using %s", argv[0])
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Debugf("%s failed, trying next player: %v", argv[0], err)
	}
	return fmt.Errorf("%w for %s", ErrNoPlayer, ref)
}

// PlayAsync plays in the background and logs failures
func (p *Player) PlayAsync(ref string) {
	go func() {
		if err := p.Play(context.Background(), ref); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Failed to play reply audio", err)
		}
	}()
}

// Stop interrupts the current playback
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Player) fetch(ctx context.Context, ref string) (string, error) {
	body, err := p.dl.Download(ctx, ref)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmpFile, err := os.CreateTemp("", "voiceassist_reply_*"+extensionOf(ref))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmpFile, body); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmpFile.Name(), nil
}

func extensionOf(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" || len(ext) > 5 {
		return ".mp3"
	}
	return ext
}

// candidates lists player command lines in order of preference
func candidates(preferred, filename string) [][]string {
	players := [][]string{
		{"paplay", filename},
		{"mpv", "--no-video", "--really-quiet", filename},
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", filename},
		{"aplay", filename}, // for basic PCM/WAV
	}
	if preferred == "" {
		return players
	}
	out := [][]string{{preferred, filename}}
	for _, argv := range players {
		if argv[0] == preferred {
			out[0] = argv
			continue
		}
		out = append(out, argv)
	}
	return out
}
