package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dooshek/voiceassist/internal/logger"
)

// ErrConfigNotFound is returned when a configuration file does not exist
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrProcessAlreadyRunning is returned when another voiceassist process holds the PID file
var ErrProcessAlreadyRunning = errors.New("voiceassist process is already running")

// FileOps defines operations on the voiceassist config directory
type FileOps interface {
	GetConfigDir() string
	GetRecordingsDir() string
	GetStatsPath() string

	SaveConfig(filename string, data []byte) error
	LoadConfig(filename string) ([]byte, error)

	EnsureDirectories() error

	SavePID() error
	// CheckPID returns ErrProcessAlreadyRunning if another instance is alive
	CheckPID() error
	CleanupPID() error
}

// DefaultFileOps implements FileOps rooted at a single directory
type DefaultFileOps struct {
	configDir string
}

// NewDefaultFileOps uses ~/.config/voiceassist
func NewDefaultFileOps() (*DefaultFileOps, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return NewFileOps(filepath.Join(homeDir, ".config", "voiceassist")), nil
}

// NewFileOps roots all files at dir
func NewFileOps(dir string) *DefaultFileOps {
	return &DefaultFileOps{configDir: dir}
}

func (f *DefaultFileOps) GetConfigDir() string {
	return f.configDir
}

func (f *DefaultFileOps) GetRecordingsDir() string {
	return filepath.Join(f.configDir, "recordings")
}

func (f *DefaultFileOps) GetStatsPath() string {
	return filepath.Join(f.configDir, "stats.json")
}

func (f *DefaultFileOps) SaveConfig(filename string, data []byte) error {
	path := filepath.Join(f.configDir, filename)
	return os.WriteFile(path, data, 0o600)
}

func (f *DefaultFileOps) LoadConfig(filename string) ([]byte, error) {
	path := filepath.Join(f.configDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return data, nil
}

func (f *DefaultFileOps) EnsureDirectories() error {
	for _, dir := range []string{f.configDir, f.GetRecordingsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (f *DefaultFileOps) pidFilePath() string {
	return filepath.Join(f.configDir, "voiceassist.pid")
}

func (f *DefaultFileOps) SavePID() error {
	return os.WriteFile(f.pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (f *DefaultFileOps) CheckPID() error {
	data, err := os.ReadFile(f.pidFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid == os.Getpid() {
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	// Signal 0 only probes for existence
	if err := process.Signal(syscall.Signal(0)); err == nil {
		return ErrProcessAlreadyRunning
	}

	logger.Debug("Found stale PID file, will be overwritten")
	return nil
}

func (f *DefaultFileOps) CleanupPID() error {
	return os.Remove(f.pidFilePath())
}
