package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/dooshek/voiceassist/internal/fileops"
	"github.com/dooshek/voiceassist/internal/logger"
	"github.com/dooshek/voiceassist/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	configFilename = "voiceassist.yaml"
)

// LoadConfig reads the YAML config from the default directory and applies
// VOICEASSIST_* environment overrides. It returns nil, nil when no config
// file exists yet.
func LoadConfig() (*types.Config, error) {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file operations: %w", err)
	}
	return LoadFrom(fileOps)
}

// LoadFrom is LoadConfig over an explicit directory
func LoadFrom(fileOps fileops.FileOps) (*types.Config, error) {
	if err := fileOps.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	data, err := fileOps.LoadConfig(configFilename)
	if err != nil {
		if errors.Is(err, fileops.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config types.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnv(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyEnv overrides config fields from their env tags
func ApplyEnv(config *types.Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// SaveConfig merges config into the existing file, if any, and writes it back
func SaveConfig(config *types.Config) error {
	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}
	return SaveTo(fileOps, config)
}

// SaveTo is SaveConfig over an explicit directory
func SaveTo(fileOps fileops.FileOps, config *types.Config) error {
	if err := fileOps.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	existing, err := readFile(fileOps)
	if err != nil {
		logger.Warnf("Failed to load existing config: %v", err)
	} else if existing != nil {
		mergeConfigs(existing, config)
		config = existing
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileOps.SaveConfig(configFilename, data); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// readFile loads the file without env overrides so they are never persisted
func readFile(fileOps fileops.FileOps) (*types.Config, error) {
	data, err := fileOps.LoadConfig(configFilename)
	if err != nil {
		if errors.Is(err, fileops.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var config types.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// mergeConfigs copies the fields explicitly set in source into target
func mergeConfigs(target, source *types.Config) {
	if source.Backend.URL != "" {
		target.Backend.URL = source.Backend.URL
	}
	if source.Backend.RequestTimeout != 0 {
		target.Backend.RequestTimeout = source.Backend.RequestTimeout
	}

	if source.Recording.MaxSeconds != 0 {
		target.Recording.MaxSeconds = source.Recording.MaxSeconds
	}
	if source.Recording.UploadFormat != "" {
		target.Recording.UploadFormat = source.Recording.UploadFormat
	}
	if source.Recording.KeepFiles {
		target.Recording.KeepFiles = true
	}

	if source.Playback.Autoplay != nil {
		target.Playback.Autoplay = source.Playback.Autoplay
	}
	if source.Playback.Player != "" {
		target.Playback.Player = source.Playback.Player
	}

	if source.Notification.Disabled {
		target.Notification.Disabled = true
	}
	if source.Notification.Sounds {
		target.Notification.Sounds = true
	}

	if source.Hotkey.Key != "" {
		target.Hotkey = source.Hotkey
	}

	if source.DefaultCharacter != "" {
		target.DefaultCharacter = source.DefaultCharacter
	}
}
