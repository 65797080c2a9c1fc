package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scaletrack/models"
)

const userColumns = "id, name, birthday, body_height, scale_unit, gender, initial_weight, goal_weight, goal_date"

// UserRepository provides durable storage of scale profiles.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a user repository on the given connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Insert stores a new user and fills in the generated id.
func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, birthday, body_height, scale_unit, gender, initial_weight, goal_weight, goal_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.Birthday.UnixMilli(), u.BodyHeight, u.ScaleUnit, u.Gender, u.InitialWeight, u.GoalWeight, u.GoalDate.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

// InsertAll stores users keeping their existing ids. Used by the legacy
// migration, where measurements already reference those ids.
func (r *UserRepository) InsertAll(ctx context.Context, users []models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	defer tx.Rollback()

	for _, u := range users {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, birthday, body_height, scale_unit, gender, initial_weight, goal_weight, goal_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Birthday.UnixMilli(), u.BodyHeight, u.ScaleUnit, u.Gender, u.InitialWeight, u.GoalWeight, u.GoalDate.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert user %d: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	return nil
}

// Get returns one user by id, or ErrNotFound.
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetAll returns every user ordered by id.
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var list []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return list, nil
}

// Update rewrites a stored user.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, birthday = ?, body_height = ?, scale_unit = ?, gender = ?, initial_weight = ?, goal_weight = ?, goal_date = ?
		 WHERE id = ?`,
		u.Name, u.Birthday.UnixMilli(), u.BodyHeight, u.ScaleUnit, u.Gender, u.InitialWeight, u.GoalWeight, u.GoalDate.UnixMilli(), u.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

// Delete removes a user. Their measurements are removed by the foreign key
// cascade.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var birthday, goalDate int64
	err := row.Scan(&u.ID, &u.Name, &birthday, &u.BodyHeight, &u.ScaleUnit, &u.Gender,
		&u.InitialWeight, &u.GoalWeight, &goalDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Birthday = time.UnixMilli(birthday).UTC()
	u.GoalDate = time.UnixMilli(goalDate).UTC()
	return &u, nil
}
