package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scaletrack/models"
)

const measurementColumns = "id, user_id, measured_at, weight, fat, water, muscle, lbw, bone, waist, hip, comment"

// MeasurementRepository provides keyed access to stored measurements.
// Timestamps are persisted as unix milliseconds (UTC); range queries are
// half-open [start, end).
type MeasurementRepository struct {
	db *sql.DB
}

// NewMeasurementRepository creates a measurement repository on the given connection.
func NewMeasurementRepository(db *sql.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// Insert stores a new measurement and fills in the generated id.
func (r *MeasurementRepository) Insert(ctx context.Context, m *models.Measurement) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO measurements (user_id, measured_at, weight, fat, water, muscle, lbw, bone, waist, hip, comment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.MeasuredAt.UnixMilli(), m.Weight, m.Fat, m.Water, m.Muscle, m.LBW, m.Bone, m.Waist, m.Hip, m.Comment)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	m.ID = id
	return nil
}

// Update rewrites a stored measurement in place.
func (r *MeasurementRepository) Update(ctx context.Context, m *models.Measurement) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE measurements
		 SET user_id = ?, measured_at = ?, weight = ?, fat = ?, water = ?, muscle = ?, lbw = ?, bone = ?, waist = ?, hip = ?, comment = ?
		 WHERE id = ?`,
		m.UserID, m.MeasuredAt.UnixMilli(), m.Weight, m.Fat, m.Water, m.Muscle, m.LBW, m.Bone, m.Waist, m.Hip, m.Comment, m.ID)
	if err != nil {
		return fmt.Errorf("update measurement %d: %w", m.ID, err)
	}
	return nil
}

// Delete removes one measurement by id.
func (r *MeasurementRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM measurements WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete measurement %d: %w", id, err)
	}
	return nil
}

// DeleteAll removes every measurement belonging to a user.
func (r *MeasurementRepository) DeleteAll(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM measurements WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete measurements of user %d: %w", userID, err)
	}
	return nil
}

// Get returns one measurement by id, or ErrNotFound.
func (r *MeasurementRepository) Get(ctx context.Context, id int64) (*models.Measurement, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+measurementColumns+" FROM measurements WHERE id = ?", id)
	return scanMeasurement(row)
}

// GetByTimestamp returns the user's measurement captured at the exact
// instant, or ErrNotFound. This is the uniqueness probe used before inserts.
func (r *MeasurementRepository) GetByTimestamp(ctx context.Context, ts time.Time, userID int64) (*models.Measurement, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+measurementColumns+" FROM measurements WHERE user_id = ? AND measured_at = ?",
		userID, ts.UnixMilli())
	return scanMeasurement(row)
}

// GetPrevious returns the user's newest measurement older than the one with
// the given id, or ErrNotFound.
func (r *MeasurementRepository) GetPrevious(ctx context.Context, id, userID int64) (*models.Measurement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+measurementColumns+` FROM measurements
		 WHERE user_id = ? AND measured_at < (SELECT measured_at FROM measurements WHERE id = ?)
		 ORDER BY measured_at DESC LIMIT 1`,
		userID, id)
	return scanMeasurement(row)
}

// GetNext returns the user's oldest measurement newer than the one with the
// given id, or ErrNotFound.
func (r *MeasurementRepository) GetNext(ctx context.Context, id, userID int64) (*models.Measurement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+measurementColumns+` FROM measurements
		 WHERE user_id = ? AND measured_at > (SELECT measured_at FROM measurements WHERE id = ?)
		 ORDER BY measured_at ASC LIMIT 1`,
		userID, id)
	return scanMeasurement(row)
}

// GetAll returns every measurement of a user, newest first.
func (r *MeasurementRepository) GetAll(ctx context.Context, userID int64) ([]models.Measurement, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+measurementColumns+" FROM measurements WHERE user_id = ? ORDER BY measured_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list measurements of user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanMeasurements(rows)
}

// GetAllInRange returns the user's measurements with start <= measured_at < end,
// newest first.
func (r *MeasurementRepository) GetAllInRange(ctx context.Context, start, end time.Time, userID int64) ([]models.Measurement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+measurementColumns+` FROM measurements
		 WHERE user_id = ? AND measured_at >= ? AND measured_at < ?
		 ORDER BY measured_at DESC`,
		userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list measurements of user %d in range: %w", userID, err)
	}
	defer rows.Close()
	return scanMeasurements(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row rowScanner) (*models.Measurement, error) {
	var m models.Measurement
	var measuredAt int64
	err := row.Scan(&m.ID, &m.UserID, &measuredAt, &m.Weight, &m.Fat, &m.Water,
		&m.Muscle, &m.LBW, &m.Bone, &m.Waist, &m.Hip, &m.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan measurement: %w", err)
	}
	m.MeasuredAt = time.UnixMilli(measuredAt).UTC()
	return &m, nil
}

func scanMeasurements(rows *sql.Rows) ([]models.Measurement, error) {
	var list []models.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return list, nil
}
