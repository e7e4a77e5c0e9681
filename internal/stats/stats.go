package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dooshek/voiceassist/internal/logger"
)

// CharacterStats holds usage statistics for one character
type CharacterStats struct {
	TotalSeconds   float64 `json:"total_seconds"`
	RecordingCount int     `json:"recording_count"`
	TextCount      int     `json:"text_count"`
}

// Stats holds all usage statistics
type Stats struct {
	Characters map[string]*CharacterStats `json:"characters"`
}

// Entry is one row of a sorted report
type Entry struct {
	Character string
	CharacterStats
}

// StatsManager manages usage statistics persistence
type StatsManager struct {
	stats    Stats
	filePath string
	mu       sync.Mutex
}

// NewStatsManager creates a stats manager backed by filePath and loads
// existing data
func NewStatsManager(filePath string) *StatsManager {
	sm := &StatsManager{
		filePath: filePath,
		stats: Stats{
			Characters: make(map[string]*CharacterStats),
		},
	}

	if err := sm.load(); err != nil {
		logger.Debugf("Could not load stats (will start fresh): %v", err)
	}

	return sm
}

// RecordAudio adds an answered recording and persists immediately
func (sm *StatsManager) RecordAudio(character string, d time.Duration) {
	sm.update(character, func(cs *CharacterStats) {
		cs.TotalSeconds += d.Seconds()
		cs.RecordingCount++
	})
}

// RecordText adds an answered text message and persists immediately
func (sm *StatsManager) RecordText(character string) {
	sm.update(character, func(cs *CharacterStats) {
		cs.TextCount++
	})
}

func (sm *StatsManager) update(character string, f func(*CharacterStats)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.stats.Characters == nil {
		sm.stats.Characters = make(map[string]*CharacterStats)
	}
	cs, ok := sm.stats.Characters[character]
	if !ok {
		cs = &CharacterStats{}
		sm.stats.Characters[character] = cs
	}
	f(cs)

	if err := sm.save(); err != nil {
		logger.Error("Failed to save stats", err)
	}
}

// GetStats returns a deep copy of current statistics
func (sm *StatsManager) GetStats() Stats {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	statsCopy := Stats{
		Characters: make(map[string]*CharacterStats, len(sm.stats.Characters)),
	}
	for name, cs := range sm.stats.Characters {
		c := *cs
		statsCopy.Characters[name] = &c
	}
	return statsCopy
}

// Report returns the statistics ordered by most used first
func (sm *StatsManager) Report() []Entry {
	s := sm.GetStats()
	entries := make([]Entry, 0, len(s.Characters))
	for name, cs := range s.Characters {
		entries = append(entries, Entry{Character: name, CharacterStats: *cs})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ua, ub := a.RecordingCount+a.TextCount, b.RecordingCount+b.TextCount; ua != ub {
			return ua > ub
		}
		return a.Character < b.Character
	})
	return entries
}

// GetStatsJSON returns statistics as a JSON string (for D-Bus)
func (sm *StatsManager) GetStatsJSON() (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := json.Marshal(sm.stats)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stats to JSON: %w", err)
	}
	return string(data), nil
}

// Reset clears all statistics and persists empty state
func (sm *StatsManager) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.stats = Stats{
		Characters: make(map[string]*CharacterStats),
	}
	if err := sm.save(); err != nil {
		return fmt.Errorf("failed to save reset stats: %w", err)
	}
	return nil
}

func (sm *StatsManager) load() error {
	data, err := os.ReadFile(sm.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("Stats file not found, starting fresh: %s", sm.filePath)
			return nil
		}
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	if err := json.Unmarshal(data, &sm.stats); err != nil {
		return fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	if sm.stats.Characters == nil {
		sm.stats.Characters = make(map[string]*CharacterStats)
	}

	logger.Debugf("Loaded stats from %s", sm.filePath)
	return nil
}

func (sm *StatsManager) save() error {
	dir := filepath.Dir(sm.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	data, err := json.MarshalIndent(sm.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves half a file
	tempFile := sm.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp stats file: %w", err)
	}
	if err := os.Rename(tempFile, sm.filePath); err != nil {
		return fmt.Errorf("failed to rename temp stats file: %w", err)
	}
	return nil
}
