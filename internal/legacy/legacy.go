// Package legacy migrates the old single-file database format into the
// current store. The migration runs at startup and is guarded so it only
// ever copies data once.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scaletrack/models"
)

// legacySchemaVersion is the sqlite user_version the old format ended on.
// Files at any other version are not touched.
const legacySchemaVersion = 6

// UserTarget is the part of the user store the migration writes to.
type UserTarget interface {
	GetAll(ctx context.Context) ([]models.User, error)
	InsertAll(ctx context.Context, users []models.User) error
}

// MeasurementTarget is the part of the measurement store the migration
// writes to.
type MeasurementTarget interface {
	Insert(ctx context.Context, m *models.Measurement) error
}

// Migrate copies every user and their measurements from the legacy database
// at path into the new store. It is safe to call on every startup: nothing
// happens unless the legacy file exists at the known old schema version, the
// new user table is empty, and the legacy store has at least one user.
// Returns the number of copied records (users plus measurements).
func Migrate(ctx context.Context, path string, users UserTarget, measurements MeasurementTarget) (int, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, nil
	}

	existing, err := users.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("check user table: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	legacyDB, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return 0, fmt.Errorf("open legacy database: %w", err)
	}
	defer legacyDB.Close()

	var version int
	if err := legacyDB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read legacy schema version: %w", err)
	}
	if version != legacySchemaVersion {
		return 0, nil
	}

	legacyUsers, err := readUsers(ctx, legacyDB)
	if err != nil {
		return 0, err
	}
	if len(legacyUsers) == 0 {
		return 0, nil
	}

	if err := users.InsertAll(ctx, legacyUsers); err != nil {
		return 0, fmt.Errorf("copy legacy users: %w", err)
	}

	copied := len(legacyUsers)
	for _, u := range legacyUsers {
		list, err := readMeasurements(ctx, legacyDB, u.ID)
		if err != nil {
			return copied, fmt.Errorf("copy measurements of user %d: %w", u.ID, err)
		}
		for i := range list {
			if err := measurements.Insert(ctx, &list[i]); err != nil {
				return copied, fmt.Errorf("copy measurements of user %d: %w", u.ID, err)
			}
			copied++
		}
	}

	slog.Info("legacy database migrated", "path", path, "records", copied)
	return copied, nil
}

// DumpResult is the JSON shape produced by Dump.
type DumpResult struct {
	Version      int                  `json:"version"`
	Users        []models.User        `json:"users"`
	Measurements []models.Measurement `json:"measurements"`
}

// Dump reads a legacy database without writing anywhere, for inspection.
func Dump(ctx context.Context, path string) (*DumpResult, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	defer db.Close()

	res := &DumpResult{}
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&res.Version); err != nil {
		return nil, fmt.Errorf("read legacy schema version: %w", err)
	}

	if res.Users, err = readUsers(ctx, db); err != nil {
		return nil, err
	}
	for _, u := range res.Users {
		list, err := readMeasurements(ctx, db, u.ID)
		if err != nil {
			return nil, err
		}
		res.Measurements = append(res.Measurements, list...)
	}
	return res, nil
}

func readUsers(ctx context.Context, db *sql.DB) ([]models.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_name, birthday, body_height, scale_unit, gender, initial_weight, goal_weight, goal_date
		 FROM scale_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read legacy users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var birthday, goalDate int64
		if err := rows.Scan(&u.ID, &u.Name, &birthday, &u.BodyHeight, &u.ScaleUnit, &u.Gender,
			&u.InitialWeight, &u.GoalWeight, &goalDate); err != nil {
			return nil, fmt.Errorf("scan legacy user: %w", err)
		}
		u.Birthday = time.UnixMilli(birthday).UTC()
		u.GoalDate = time.UnixMilli(goalDate).UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy users: %w", err)
	}
	return users, nil
}

func readMeasurements(ctx context.Context, db *sql.DB, userID int64) ([]models.Measurement, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, date_time, weight, fat, water, muscle, lbw, bone, waist, hip, comment
		 FROM scale_data WHERE user_id = ? ORDER BY date_time`, userID)
	if err != nil {
		return nil, fmt.Errorf("read legacy measurements: %w", err)
	}
	defer rows.Close()

	var list []models.Measurement
	for rows.Next() {
		var m models.Measurement
		var measuredAt int64
		if err := rows.Scan(&m.UserID, &measuredAt, &m.Weight, &m.Fat, &m.Water, &m.Muscle,
			&m.LBW, &m.Bone, &m.Waist, &m.Hip, &m.Comment); err != nil {
			return nil, fmt.Errorf("scan legacy measurement: %w", err)
		}
		m.MeasuredAt = time.UnixMilli(measuredAt).UTC()
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy measurements: %w", err)
	}
	return list, nil
}
