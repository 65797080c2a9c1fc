package coordinator_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"scaletrack/internal/database"
	"scaletrack/models"
)

// In-memory store fakes mirroring the sqlite repositories' contracts.

type memMeasurementStore struct {
	mu     sync.Mutex
	nextID int64
	data   map[int64]models.Measurement
}

func newMemMeasurementStore() *memMeasurementStore {
	return &memMeasurementStore{nextID: 1, data: map[int64]models.Measurement{}}
}

func (s *memMeasurementStore) Insert(_ context.Context, m *models.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID
	s.nextID++
	s.data[m.ID] = *m
	return nil
}

func (s *memMeasurementStore) Update(_ context.Context, m *models.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[m.ID] = *m
	return nil
}

func (s *memMeasurementStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *memMeasurementStore) DeleteAll(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.data {
		if m.UserID == userID {
			delete(s.data, id)
		}
	}
	return nil
}

func (s *memMeasurementStore) Get(_ context.Context, id int64) (*models.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &m, nil
}

func (s *memMeasurementStore) GetByTimestamp(_ context.Context, ts time.Time, userID int64) (*models.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.data {
		if m.UserID == userID && m.MeasuredAt.Equal(ts) {
			m := m
			return &m, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memMeasurementStore) GetPrevious(ctx context.Context, id, userID int64) (*models.Measurement, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	list, _ := s.GetAll(ctx, userID) // newest first
	for _, m := range list {
		if m.MeasuredAt.Before(cur.MeasuredAt) {
			m := m
			return &m, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memMeasurementStore) GetNext(ctx context.Context, id, userID int64) (*models.Measurement, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	list, _ := s.GetAll(ctx, userID)
	var next *models.Measurement
	for i := range list {
		if list[i].MeasuredAt.After(cur.MeasuredAt) {
			next = &list[i] // keep going: list is newest first, we want the oldest newer one
		}
	}
	if next == nil {
		return nil, database.ErrNotFound
	}
	return next, nil
}

func (s *memMeasurementStore) GetAll(_ context.Context, userID int64) ([]models.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.Measurement
	for _, m := range s.data {
		if m.UserID == userID {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].MeasuredAt.After(list[j].MeasuredAt) })
	return list, nil
}

func (s *memMeasurementStore) GetAllInRange(ctx context.Context, start, end time.Time, userID int64) ([]models.Measurement, error) {
	all, _ := s.GetAll(ctx, userID)
	var list []models.Measurement
	for _, m := range all {
		if !m.MeasuredAt.Before(start) && m.MeasuredAt.Before(end) {
			list = append(list, m)
		}
	}
	return list, nil
}

func (s *memMeasurementStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	data   map[int64]models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, data: map[int64]models.User{}}
}

func (s *memUserStore) Insert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID
	s.nextID++
	s.data[u.ID] = *u
	return nil
}

func (s *memUserStore) InsertAll(_ context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.data[u.ID] = u
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return nil
}

func (s *memUserStore) Get(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (s *memUserStore) GetAll(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []models.User
	for _, u := range s.data {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *memUserStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[u.ID] = *u
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}
