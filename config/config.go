// Package config persists the process-wide key/value settings: the selected
// user, the assignment policy flags and the estimator configuration.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"scaletrack/models"
	"scaletrack/services/estimator"
)

// Settings is the persisted shape. Formula fields hold variant names; they
// are resolved into estimator variants once, when the file is loaded.
type Settings struct {
	SelectedUserID   int64 `json:"selectedUserId"`
	SmartUserAssign  bool  `json:"smartUserAssign"`
	IgnoreOutOfRange bool  `json:"ignoreOutOfRange"`

	EstimateWaterEnable  bool   `json:"estimateWaterEnable"`
	EstimateWaterFormula string `json:"estimateWaterFormula"`
	EstimateLBWEnable    bool   `json:"estimateLBWEnable"`
	EstimateLBWFormula   string `json:"estimateLBWFormula"`
	EstimateFatEnable    bool   `json:"estimateFatEnable"`
	EstimateFatFormula   string `json:"estimateFatFormula"`
}

// Defaults returns the settings used when no file exists yet.
func Defaults() Settings {
	return Settings{
		SelectedUserID:       models.NoUserID,
		EstimateWaterFormula: estimator.DefaultWaterFormula.String(),
		EstimateLBWFormula:   estimator.DefaultLBWFormula.String(),
		EstimateFatFormula:   estimator.DefaultFatFormula.String(),
	}
}

// Manager loads and saves the settings file and caches the resolved
// estimator plan. Safe for concurrent use.
type Manager struct {
	fs   afero.Fs
	path string

	mu       sync.RWMutex
	settings Settings
	plan     estimator.Plan
}

// NewManager creates a manager for the given settings file path.
func NewManager(fs afero.Fs, path string) *Manager {
	return &Manager{fs: fs, path: path, settings: Defaults(), plan: resolvePlan(Defaults())}
}

// Load reads the settings file. A missing file leaves the defaults in place.
// Unknown formula names fall back to the per-kind default with a warning so
// a hand-edited file cannot take the tracker down.
func (m *Manager) Load() error {
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		exists, statErr := afero.Exists(m.fs, m.path)
		if statErr == nil && !exists {
			return nil
		}
		return fmt.Errorf("read settings %s: %w", m.path, err)
	}

	s := Defaults()
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse settings %s: %w", m.path, err)
	}

	m.mu.Lock()
	m.settings = s
	m.plan = resolvePlan(s)
	m.mu.Unlock()
	return nil
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Plan returns the resolved estimator configuration.
func (m *Manager) Plan() estimator.Plan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plan
}

// Update applies fn to the settings, re-resolves the estimator plan and
// persists the result atomically (temp file + rename).
func (m *Manager) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.settings
	fn(&s)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := m.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	tmp := m.path + ".tmp"
	if err := afero.WriteFile(m.fs, tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := m.fs.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}

	m.settings = s
	m.plan = resolvePlan(s)
	return nil
}

func resolvePlan(s Settings) estimator.Plan {
	var p estimator.Plan
	var err error

	p.Water.Enabled = s.EstimateWaterEnable
	if p.Water.Formula, err = estimator.ParseWaterFormula(s.EstimateWaterFormula); err != nil {
		slog.Warn("unknown water formula, using default", "formula", s.EstimateWaterFormula)
		p.Water.Formula = estimator.DefaultWaterFormula
	}

	p.LBW.Enabled = s.EstimateLBWEnable
	if p.LBW.Formula, err = estimator.ParseLBWFormula(s.EstimateLBWFormula); err != nil {
		slog.Warn("unknown lean body weight formula, using default", "formula", s.EstimateLBWFormula)
		p.LBW.Formula = estimator.DefaultLBWFormula
	}

	p.Fat.Enabled = s.EstimateFatEnable
	if p.Fat.Formula, err = estimator.ParseFatFormula(s.EstimateFatFormula); err != nil {
		slog.Warn("unknown fat formula, using default", "formula", s.EstimateFatFormula)
		p.Fat.Formula = estimator.DefaultFatFormula
	}

	return p
}
