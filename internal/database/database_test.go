package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scaletrack/internal/database"
	"scaletrack/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "scaletrack.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestUser(t *testing.T, db *database.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Name:       name,
		Birthday:   time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
		BodyHeight: 180,
	}
	require.NoError(t, db.Users.Insert(context.Background(), u))
	return u
}

func ts(day, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
}

func TestOpenIsIdempotentOnExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaletrack.db")

	db, err := database.Open(database.Config{DatabasePath: path})
	require.NoError(t, err)
	u := insertTestUser(t, db, "A")
	require.NoError(t, db.Close())

	// Reopening runs migrations again over the populated file.
	db2, err := database.Open(database.Config{DatabasePath: path})
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, "A", got.Name)
}

func TestMeasurementInsertAndGetRoundTrip(t *testing.T) {
	db := openTestDB(t)
	u := insertTestUser(t, db, "A")

	m := &models.Measurement{
		UserID:     u.ID,
		MeasuredAt: ts(1, 8),
		Weight:     80.5, Fat: 20.1, Water: 55.2, Muscle: 38.4,
		LBW: 60.3, Bone: 3.2, Waist: 81, Hip: 95,
		Comment: "morning",
	}
	require.NoError(t, db.Measurements.Insert(context.Background(), m))
	require.NotZero(t, m.ID)

	got, err := db.Measurements.Get(context.Background(), m.ID)
	require.NoError(t, err)
	require.Equal(t, m.UserID, got.UserID)
	require.True(t, got.MeasuredAt.Equal(ts(1, 8)))
	require.Equal(t, float32(80.5), got.Weight)
	require.Equal(t, "morning", got.Comment)
}

func TestMeasurementGetMissingIsErrNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Measurements.Get(context.Background(), 404)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestMeasurementUniquePerUserAndInstant(t *testing.T) {
	db := openTestDB(t)
	a := insertTestUser(t, db, "A")
	b := insertTestUser(t, db, "B")

	first := &models.Measurement{UserID: a.ID, MeasuredAt: ts(1, 8), Weight: 80}
	require.NoError(t, db.Measurements.Insert(context.Background(), first))

	dup := &models.Measurement{UserID: a.ID, MeasuredAt: ts(1, 8), Weight: 81}
	require.Error(t, db.Measurements.Insert(context.Background(), dup))

	// A different user may record at the same instant.
	other := &models.Measurement{UserID: b.ID, MeasuredAt: ts(1, 8), Weight: 95}
	require.NoError(t, db.Measurements.Insert(context.Background(), other))
}

func TestGetByTimestamp(t *testing.T) {
	db := openTestDB(t)
	u := insertTestUser(t, db, "A")

	m := &models.Measurement{UserID: u.ID, MeasuredAt: ts(1, 8), Weight: 80}
	require.NoError(t, db.Measurements.Insert(context.Background(), m))

	got, err := db.Measurements.GetByTimestamp(context.Background(), ts(1, 8), u.ID)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)

	_, err = db.Measurements.GetByTimestamp(context.Background(), ts(1, 9), u.ID)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestGetAllIsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	u := insertTestUser(t, db, "A")

	for day := 1; day <= 3; day++ {
		m := &models.Measurement{UserID: u.ID, MeasuredAt: ts(day, 8), Weight: float32(80 + day)}
		require.NoError(t, db.Measurements.Insert(context.Background(), m))
	}

	list, err := db.Measurements.GetAll(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.True(t, list[0].MeasuredAt.After(list[1].MeasuredAt))
	require.True(t, list[1].MeasuredAt.After(list[2].MeasuredAt))
}

func TestGetPreviousAndNext(t *testing.T) {
	db := openTestDB(t)
	u := insertTestUser(t, db, "A")

	var ids [3]int64
	for i, day := range []int{1, 2, 3} {
		m := &models.Measurement{UserID: u.ID, MeasuredAt: ts(day, 8), Weight: 80}
		require.NoError(t, db.Measurements.Insert(context.Background(), m))
		ids[i] = m.ID
	}

	prev, err := db.Measurements.GetPrevious(context.Background(), ids[1], u.ID)
	require.NoError(t, err)
	require.Equal(t, ids[0], prev.ID)

	next, err := db.Measurements.GetNext(context.Background(), ids[1], u.ID)
	require.NoError(t, err)
	require.Equal(t, ids[2], next.ID)

	_, err = db.Measurements.GetPrevious(context.Background(), ids[0], u.ID)
	require.ErrorIs(t, err, database.ErrNotFound)
	_, err = db.Measurements.GetNext(context.Background(), ids[2], u.ID)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestGetAllInRangeIsHalfOpen(t *testing.T) {
	db := openTestDB(t)
	u := insertTestUser(t, db, "A")

	start := ts(10, 0)
	end := ts(20, 0)
	for _, at := range []time.Time{ts(9, 23), start, ts(15, 12), end} {
		m := &models.Measurement{UserID: u.ID, MeasuredAt: at, Weight: 80}
		require.NoError(t, db.Measurements.Insert(context.Background(), m))
	}

	list, err := db.Measurements.GetAllInRange(context.Background(), start, end, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2, "start is included, end is excluded")
	for _, m := range list {
		require.False(t, m.MeasuredAt.Before(start))
		require.True(t, m.MeasuredAt.Before(end))
	}
}

func TestUpdateAndDeleteMeasurement(t *testing.T) {
	db := openTestDB(t)
	u := insertTestUser(t, db, "A")

	m := &models.Measurement{UserID: u.ID, MeasuredAt: ts(1, 8), Weight: 80}
	require.NoError(t, db.Measurements.Insert(context.Background(), m))

	m.Weight = 79.5
	m.Comment = "corrected"
	require.NoError(t, db.Measurements.Update(context.Background(), m))

	got, err := db.Measurements.Get(context.Background(), m.ID)
	require.NoError(t, err)
	require.Equal(t, float32(79.5), got.Weight)
	require.Equal(t, "corrected", got.Comment)

	require.NoError(t, db.Measurements.Delete(context.Background(), m.ID))
	_, err = db.Measurements.Get(context.Background(), m.ID)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestDeleteAllRemovesOnlyThatUser(t *testing.T) {
	db := openTestDB(t)
	a := insertTestUser(t, db, "A")
	b := insertTestUser(t, db, "B")

	for day := 1; day <= 2; day++ {
		require.NoError(t, db.Measurements.Insert(context.Background(),
			&models.Measurement{UserID: a.ID, MeasuredAt: ts(day, 8), Weight: 80}))
	}
	require.NoError(t, db.Measurements.Insert(context.Background(),
		&models.Measurement{UserID: b.ID, MeasuredAt: ts(1, 8), Weight: 95}))

	require.NoError(t, db.Measurements.DeleteAll(context.Background(), a.ID))

	listA, err := db.Measurements.GetAll(context.Background(), a.ID)
	require.NoError(t, err)
	require.Empty(t, listA)

	listB, err := db.Measurements.GetAll(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, listB, 1)
}

func TestDeletingUserCascadesToMeasurements(t *testing.T) {
	db := openTestDB(t)
	u := insertTestUser(t, db, "A")

	m := &models.Measurement{UserID: u.ID, MeasuredAt: ts(1, 8), Weight: 80}
	require.NoError(t, db.Measurements.Insert(context.Background(), m))

	require.NoError(t, db.Users.Delete(context.Background(), u.ID))

	_, err := db.Measurements.Get(context.Background(), m.ID)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestUserRoundTripAndUpdate(t *testing.T) {
	db := openTestDB(t)

	u := &models.User{
		Name:          "Anna",
		Birthday:      time.Date(1985, time.July, 12, 0, 0, 0, 0, time.UTC),
		BodyHeight:    168,
		ScaleUnit:     models.UnitLb,
		Gender:        models.GenderFemale,
		InitialWeight: 64.5,
		GoalWeight:    60,
		GoalDate:      time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Users.Insert(context.Background(), u))
	require.NotZero(t, u.ID)

	got, err := db.Users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, "Anna", got.Name)
	require.True(t, got.Birthday.Equal(u.Birthday))
	require.Equal(t, models.UnitLb, got.ScaleUnit)
	require.Equal(t, float32(64.5), got.InitialWeight)

	got.Name = "Anna B"
	got.GoalWeight = 58
	require.NoError(t, db.Users.Update(context.Background(), got))

	again, err := db.Users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, "Anna B", again.Name)
	require.Equal(t, float32(58), again.GoalWeight)
}

func TestUserInsertAllPreservesIDs(t *testing.T) {
	db := openTestDB(t)

	users := []models.User{
		{ID: 7, Name: "Seven", Birthday: time.UnixMilli(0).UTC()},
		{ID: 9, Name: "Nine", Birthday: time.UnixMilli(0).UTC()},
	}
	require.NoError(t, db.Users.InsertAll(context.Background(), users))

	got, err := db.Users.Get(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, "Nine", got.Name)

	list, err := db.Users.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, int64(7), list[0].ID)

	// The next generated id continues past the preserved ones.
	fresh := &models.User{Name: "Ten", Birthday: time.UnixMilli(0).UTC()}
	require.NoError(t, db.Users.Insert(context.Background(), fresh))
	require.Greater(t, fresh.ID, int64(9))
}
