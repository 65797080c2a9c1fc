// Package coordinator implements the measurement coordination engine: it
// decides which user a captured reading belongs to, derives configured
// secondary metrics, guarantees non-duplicate writes, drives device
// discovery and fans change notifications out to registered observers.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"scaletrack/config"
	"scaletrack/internal/database"
	"scaletrack/internal/legacy"
	"scaletrack/models"
	"scaletrack/services/device"
	"scaletrack/services/estimator"
)

// smartAssignTolerance is the weight band (in kg, either side) inside which
// a user's reference weight makes them a candidate for an unassigned reading.
const smartAssignTolerance = 15.0

// dateTimeFormat is the human-readable pattern used by CSV files and
// confirmation notices (day.month.year hour:minute, 24-hour).
const dateTimeFormat = "02.01.2006 15:04"

// MeasurementStore is the durable keyed storage for measurements. Range
// queries are half-open [start, end).
type MeasurementStore interface {
	Insert(ctx context.Context, m *models.Measurement) error
	Update(ctx context.Context, m *models.Measurement) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context, userID int64) error
	Get(ctx context.Context, id int64) (*models.Measurement, error)
	GetByTimestamp(ctx context.Context, ts time.Time, userID int64) (*models.Measurement, error)
	GetPrevious(ctx context.Context, id, userID int64) (*models.Measurement, error)
	GetNext(ctx context.Context, id, userID int64) (*models.Measurement, error)
	GetAll(ctx context.Context, userID int64) ([]models.Measurement, error)
	GetAllInRange(ctx context.Context, start, end time.Time, userID int64) ([]models.Measurement, error)
}

// UserStore is the durable storage of scale profiles.
type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	InsertAll(ctx context.Context, users []models.User) error
	Get(ctx context.Context, id int64) (*models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id int64) error
}

var (
	_ MeasurementStore = (*database.MeasurementRepository)(nil)
	_ UserStore        = (*database.UserRepository)(nil)
)

// NoticeSink receives short user-visible messages (ingestion confirmations,
// degradation warnings).
type NoticeSink interface {
	Notice(n models.Notice)
}

// Options wires the coordinator's collaborators.
type Options struct {
	Config       *config.Manager
	Measurements MeasurementStore
	Users        UserStore
	Devices      *device.Manager

	// Fs is used for file-based CSV import/export. Defaults to the OS
	// filesystem.
	Fs afero.Fs

	// LegacyDatabasePath, when set, points at an old-format database that is
	// migrated once at startup (guarded by the empty-user-table condition).
	LegacyDatabasePath string
}

// Coordinator is the single stateful engine between a capture event and a
// durable, notified measurement record.
//
// Construct exactly one per process with New, at startup, and pass it by
// reference to every consumer. Construction is not safe to race with itself;
// the host must call New once before anything else runs.
type Coordinator struct {
	cfg          *config.Manager
	measurements MeasurementStore
	users        UserStore
	devices      *device.Manager
	fs           afero.Fs

	registry *registry

	mu     sync.Mutex
	cached []models.Measurement

	sinkMu sync.Mutex
	sinks  []NoticeSink
}

// New builds the coordinator, runs the one-time legacy migration when
// configured, and primes the cached measurement list for the selected user.
func New(ctx context.Context, opts Options) (*Coordinator, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	c := &Coordinator{
		cfg:          opts.Config,
		measurements: opts.Measurements,
		users:        opts.Users,
		devices:      opts.Devices,
		fs:           fs,
		registry:     newRegistry(),
	}

	if opts.LegacyDatabasePath != "" {
		migrated, err := legacy.Migrate(ctx, opts.LegacyDatabasePath, c.users, c.measurements)
		if err != nil {
			return nil, fmt.Errorf("legacy migration: %w", err)
		}
		if migrated > 0 {
			c.notice(fmt.Sprintf("Migrated %d records from the old database format", migrated))
		}
	}

	c.mu.Lock()
	c.refreshLocked(ctx)
	c.mu.Unlock()

	return c, nil
}

// Close stops any device search and shuts the broadcast worker down.
func (c *Coordinator) Close() {
	if c.devices != nil {
		c.devices.StopSearch()
	}
	c.registry.close()
}

// RegisterNoticeSink adds a receiver for user-visible notices.
func (c *Coordinator) RegisterNoticeSink(s NoticeSink) {
	c.sinkMu.Lock()
	c.sinks = append(c.sinks, s)
	c.sinkMu.Unlock()
}

func (c *Coordinator) notice(msg string) {
	n := models.Notice{ID: uuid.NewString(), Message: msg, Time: time.Now().UTC()}
	c.sinkMu.Lock()
	sinks := append([]NoticeSink(nil), c.sinks...)
	c.sinkMu.Unlock()
	for _, s := range sinks {
		s.Notice(n)
	}
}

// RegisterObserver adds an observer and immediately pushes the current
// measurement list to it alone. Observers are notified in registration
// order on every later broadcast; an observer whose Active method reports
// false is skipped, never unregistered.
func (c *Coordinator) RegisterObserver(o Observer) {
	c.mu.Lock()
	snapshot := append([]models.Measurement(nil), c.cached...)
	c.mu.Unlock()
	c.registry.register(o, snapshot)
}

// Measurements returns the cached measurement list of the selected user,
// newest first.
func (c *Coordinator) Measurements() []models.Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Measurement(nil), c.cached...)
}

// AddMeasurement runs the ingestion pipeline for one captured reading:
// user resolution, metric derivation, uniqueness check, insert, broadcast.
// It returns the resolved user id. An unresolvable reading is dropped and
// reported as ErrAssignmentRejected; re-ingesting an existing
// (user, timestamp) pair is a no-op that still returns the user id.
func (c *Coordinator) AddMeasurement(ctx context.Context, m models.Measurement) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	settings := c.cfg.Settings()

	if m.UserID < 1 {
		if settings.SmartUserAssign {
			assigned, err := c.assignUserLocked(ctx, m.Weight, smartAssignTolerance)
			if err != nil {
				return models.NoUserID, err
			}
			m.UserID = assigned
		} else {
			m.UserID = c.selectedUserLocked(ctx).ID
		}

		if m.UserID < 1 {
			return models.NoUserID, ErrAssignmentRejected
		}
	}

	user, err := c.users.Get(ctx, m.UserID)
	if err != nil {
		return models.NoUserID, fmt.Errorf("load user %d: %w", m.UserID, err)
	}

	plan := c.cfg.Plan()
	if plan.Water.Enabled {
		m.Water = estimator.Water(plan.Water.Formula, *user, m)
	}
	if plan.LBW.Enabled {
		m.LBW = estimator.LBW(plan.LBW.Formula, *user, m)
	}
	if plan.Fat.Enabled {
		m.Fat = estimator.Fat(plan.Fat.Formula, *user, m)
	}

	existing, err := c.measurements.GetByTimestamp(ctx, m.MeasuredAt, m.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return models.NoUserID, fmt.Errorf("uniqueness check: %w", err)
	}
	if existing != nil {
		// Idempotent re-ingestion: the record is already durable.
		return m.UserID, nil
	}

	if err := c.measurements.Insert(ctx, &m); err != nil {
		return models.NoUserID, fmt.Errorf("insert measurement: %w", err)
	}

	c.notice(fmt.Sprintf("Added %.2f %s for %s on %s",
		user.ConvertedWeight(m.Weight), user.UnitLabel(), user.Name,
		m.MeasuredAt.Format(dateTimeFormat)))

	c.refreshLocked(ctx)
	c.broadcastLocked()
	return m.UserID, nil
}

// UpdateMeasurement rewrites a stored measurement in place.
func (c *Coordinator) UpdateMeasurement(ctx context.Context, m models.Measurement) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.measurements.Update(ctx, &m); err != nil {
		return err
	}
	c.refreshLocked(ctx)
	c.broadcastLocked()
	return nil
}

// DeleteMeasurement removes one measurement by id.
func (c *Coordinator) DeleteMeasurement(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.measurements.Delete(ctx, id); err != nil {
		return err
	}
	c.refreshLocked(ctx)
	c.broadcastLocked()
	return nil
}

// ClearMeasurements removes every measurement of a user.
func (c *Coordinator) ClearMeasurements(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.measurements.DeleteAll(ctx, userID); err != nil {
		return err
	}
	c.refreshLocked(ctx)
	c.broadcastLocked()
	return nil
}

// Tuple returns the previous, current and next measurement around an id for
// the selected user. Missing neighbors are nil.
func (c *Coordinator) Tuple(ctx context.Context, id int64) ([3]*models.Measurement, error) {
	c.mu.Lock()
	selectedID := c.selectedUserLocked(ctx).ID
	c.mu.Unlock()

	var tuple [3]*models.Measurement

	current, err := c.measurements.Get(ctx, id)
	if err != nil {
		return tuple, err
	}
	tuple[1] = current

	if prev, err := c.measurements.GetPrevious(ctx, id, selectedID); err == nil {
		tuple[0] = prev
	} else if !errors.Is(err, database.ErrNotFound) {
		return tuple, err
	}
	if next, err := c.measurements.GetNext(ctx, id, selectedID); err == nil {
		tuple[2] = next
	} else if !errors.Is(err, database.ErrNotFound) {
		return tuple, err
	}
	return tuple, nil
}

// CountsOfMonth returns, for each month of the given year, how many
// measurements the selected user has.
func (c *Coordinator) CountsOfMonth(ctx context.Context, year int) ([12]int, error) {
	c.mu.Lock()
	selectedID := c.selectedUserLocked(ctx).ID
	c.mu.Unlock()

	var counts [12]int
	for i := 0; i < 12; i++ {
		start := time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		list, err := c.measurements.GetAllInRange(ctx, start, end, selectedID)
		if err != nil {
			return counts, err
		}
		counts[i] = len(list)
	}
	return counts, nil
}

// OfMonth returns the selected user's measurements of one month.
func (c *Coordinator) OfMonth(ctx context.Context, year int, month time.Month) ([]models.Measurement, error) {
	c.mu.Lock()
	selectedID := c.selectedUserLocked(ctx).ID
	c.mu.Unlock()

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return c.measurements.GetAllInRange(ctx, start, start.AddDate(0, 1, 0), selectedID)
}

// OfYear returns the selected user's measurements of one year.
func (c *Coordinator) OfYear(ctx context.Context, year int) ([]models.Measurement, error) {
	c.mu.Lock()
	selectedID := c.selectedUserLocked(ctx).ID
	c.mu.Unlock()

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return c.measurements.GetAllInRange(ctx, start, end, selectedID)
}

// Users returns every stored profile.
func (c *Coordinator) Users(ctx context.Context) ([]models.User, error) {
	return c.users.GetAll(ctx)
}

// User returns one profile by id.
func (c *Coordinator) User(ctx context.Context, id int64) (*models.User, error) {
	return c.users.Get(ctx, id)
}

// AddUser stores a new profile and returns it with its generated id.
func (c *Coordinator) AddUser(ctx context.Context, u models.User) (*models.User, error) {
	if err := c.users.Insert(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser rewrites a stored profile.
func (c *Coordinator) UpdateUser(ctx context.Context, u models.User) error {
	return c.users.Update(ctx, &u)
}

// DeleteUser removes a profile and its measurements. When the deleted user
// was selected, the selection is cleared and a broadcast follows.
func (c *Coordinator) DeleteUser(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.users.Delete(ctx, id); err != nil {
		return err
	}
	if c.cfg.Settings().SelectedUserID == id {
		if err := c.cfg.Update(func(s *config.Settings) { s.SelectedUserID = models.NoUserID }); err != nil {
			return err
		}
		c.refreshLocked(ctx)
		c.broadcastLocked()
	}
	return nil
}

// SelectedUser returns the currently selected profile, or a profile with
// id models.NoUserID when none is selected or the lookup degrades.
func (c *Coordinator) SelectedUser(ctx context.Context) models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedUserLocked(ctx)
}

// SelectUser persists the selected-user id (models.NoUserID clears it),
// refreshes the cached list and broadcasts.
func (c *Coordinator) SelectUser(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != models.NoUserID {
		if _, err := c.users.Get(ctx, id); err != nil {
			return fmt.Errorf("select user %d: %w", id, err)
		}
	}
	if err := c.cfg.Update(func(s *config.Settings) { s.SelectedUserID = id }); err != nil {
		return err
	}
	c.refreshLocked(ctx)
	c.broadcastLocked()
	return nil
}

// StartSearch asks the device manager to bind a session for the named
// device and routes its readings through the ingestion pipeline. It reports
// false when no supported device family recognizes the name.
func (c *Coordinator) StartSearch(name string) bool {
	return c.devices.StartSearch(name, c.handleReading)
}

// StopSearch stops a running device search. Safe to call when idle; an
// in-flight reading callback still completes its ingestion.
func (c *Coordinator) StopSearch() {
	c.devices.StopSearch()
}

// DeviceState reports the discovery state and the bound device name.
func (c *Coordinator) DeviceState() (device.State, string) {
	return c.devices.State(), c.devices.DeviceName()
}

func (c *Coordinator) handleReading(m models.Measurement) {
	userID, err := c.AddMeasurement(context.Background(), m)
	switch {
	case errors.Is(err, ErrAssignmentRejected):
		slog.Info("device reading dropped, no user resolvable", "weight", m.Weight)
	case err != nil:
		slog.Error("device reading not stored", "error", err)
	default:
		slog.Debug("device reading stored", "user", userID, "weight", m.Weight)
	}
}

// selectedUserLocked loads the selected profile, degrading to "no user
// selected" (with a notice) when the lookup fails.
func (c *Coordinator) selectedUserLocked(ctx context.Context) models.User {
	none := models.User{ID: models.NoUserID}

	id := c.cfg.Settings().SelectedUserID
	if id == models.NoUserID {
		return none
	}

	user, err := c.users.Get(ctx, id)
	if err != nil {
		slog.Warn("selected user lookup failed", "user", id, "error", err)
		c.notice("Selected user could not be loaded; continuing without a selection")
		return none
	}
	return *user
}

// refreshLocked recomputes the cached measurement list for the selected user.
func (c *Coordinator) refreshLocked(ctx context.Context) {
	selected := c.selectedUserLocked(ctx)
	if selected.ID == models.NoUserID {
		c.cached = nil
		return
	}

	list, err := c.measurements.GetAll(ctx, selected.ID)
	if err != nil {
		slog.Error("measurement list refresh failed", "user", selected.ID, "error", err)
		return
	}
	c.cached = list
}

// broadcastLocked pushes the cached list to every registered observer, in
// registration order. The preceding store write is already durable when the
// snapshot is taken; delivery itself is asynchronous to the caller.
func (c *Coordinator) broadcastLocked() {
	c.registry.broadcast(append([]models.Measurement(nil), c.cached...))
}
