package fileops

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestConfigRoundTripAndMissing(t *testing.T) {
	f := NewFileOps(t.TempDir())
	if err := f.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := f.LoadConfig("missing.yaml"); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := f.SaveConfig("c.yaml", []byte("a: 1")); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	data, err := f.LoadConfig("c.yaml")
	if err != nil || string(data) != "a: 1" {
		t.Fatalf("LoadConfig = %q, %v", data, err)
	}
	if _, err := os.Stat(f.GetRecordingsDir()); err != nil {
		t.Fatalf("recordings dir: %v", err)
	}
}

func TestPID(t *testing.T) {
	f := NewFileOps(t.TempDir())
	if err := f.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := f.CheckPID(); err != nil {
		t.Fatalf("no PID file: %v", err)
	}
	if err := f.SavePID(); err != nil {
		t.Fatalf("SavePID: %v", err)
	}
	// own PID is not another instance
	if err := f.CheckPID(); err != nil {
		t.Fatalf("own PID: %v", err)
	}

	// the parent process is alive
	path := filepath.Join(f.GetConfigDir(), "voiceassist.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.CheckPID(); !errors.Is(err, ErrProcessAlreadyRunning) {
		t.Fatalf("err = %v", err)
	}

	if err := f.CleanupPID(); err != nil {
		t.Fatalf("CleanupPID: %v", err)
	}
}
