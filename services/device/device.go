// Package device binds the tracker to one scale at a time. A Session is a
// live communication channel to one device family; the Manager runs the
// discovery lifecycle (Idle -> Searching -> Bound) and guarantees that at
// most one session is bound.
package device

import (
	"log/slog"
	"sync"

	"scaletrack/models"
)

// Callback receives readings delivered asynchronously by a bound session.
// The reading's UserID is models.NoUserID; assignment happens downstream.
type Callback func(models.Measurement)

// Session is a communication channel to one device family.
type Session interface {
	// CheckDeviceName reports whether this session's family recognizes the
	// advertised device name.
	CheckDeviceName(name string) bool
	// RegisterCallback sets the handler for asynchronously arriving readings.
	RegisterCallback(cb Callback)
	// StartSearching begins the active search/stream for the named device.
	StartSearching(name string) error
	// StopSearching tears the channel down. Safe to call more than once.
	StopSearching() error
}

// ID identifies a supported device family.
type ID string

const (
	ScaleMCU      ID = "SCALE_MCU"
	MiScale       ID = "MI_SCALE"
	SanitasSBF70  ID = "SANITAS_SBF70"
	MedisanaBS444 ID = "MEDISANA_BS444"
	Demo          ID = "DEMO"
)

// SupportedDevices is the fixed enumeration order for discovery. The first
// family whose session accepts a device name wins; Demo is last so it can
// never shadow a real family.
var SupportedDevices = []ID{ScaleMCU, MiScale, SanitasSBF70, MedisanaBS444, Demo}

// Factory builds a candidate session for one device family.
type Factory func(id ID) Session

// State of the discovery machine.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateBound
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateBound:
		return "bound"
	default:
		return "idle"
	}
}

// Manager owns the single bound session. A new search replaces a bound
// session rather than queueing behind it.
type Manager struct {
	factory Factory

	mu         sync.Mutex
	state      State
	session    Session
	deviceName string
}

// NewManager creates a discovery manager using the given session factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// StartSearch tries each supported family in enumeration order and binds the
// first whose session recognizes the name. It reports false, leaving the
// manager idle, when no family accepts.
func (m *Manager) StartSearch(name string, cb Callback) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A bound session is replaced, never kept alongside a new one.
	m.stopLocked()
	m.state = StateSearching

	for _, id := range SupportedDevices {
		s := m.factory(id)
		if !s.CheckDeviceName(name) {
			continue
		}

		s.RegisterCallback(cb)
		if err := s.StartSearching(name); err != nil {
			slog.Error("device search failed to start", "device", id, "name", name, "error", err)
			m.state = StateIdle
			return false
		}
		m.session = s
		m.deviceName = name
		m.state = StateBound
		slog.Info("device bound", "device", id, "name", name)
		return true
	}

	m.state = StateIdle
	return false
}

// StopSearch stops the bound session if there is one. Idempotent; calling it
// while idle is a no-op.
func (m *Manager) StopSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.session != nil {
		if err := m.session.StopSearching(); err != nil {
			slog.Warn("device session stop", "name", m.deviceName, "error", err)
		}
		m.session = nil
		m.deviceName = ""
	}
	m.state = StateIdle
}

// State returns the current discovery state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// DeviceName returns the bound device name, or "" when idle.
func (m *Manager) DeviceName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceName
}
