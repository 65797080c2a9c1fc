package device

import (
	"math/rand"
	"sync"
	"time"

	"scaletrack/models"
)

// demoSession emits synthetic readings so the UI flow can be exercised
// without a physical scale or a gateway broker.
type demoSession struct {
	mu     sync.Mutex
	cb     Callback
	ticker *time.Ticker
	done   chan struct{}
}

func newDemoSession() *demoSession {
	return &demoSession{}
}

func (s *demoSession) CheckDeviceName(name string) bool {
	return name == "demo"
}

func (s *demoSession) RegisterCallback(cb Callback) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *demoSession) StartSearching(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(10 * time.Second)
	s.done = make(chan struct{})

	go func(ticker *time.Ticker, done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				s.mu.Lock()
				cb := s.cb
				s.mu.Unlock()
				if cb == nil {
					continue
				}
				cb(models.Measurement{
					UserID:     models.NoUserID,
					MeasuredAt: now.UTC().Truncate(time.Minute),
					Weight:     78 + rand.Float32()*4,
					Fat:        20 + rand.Float32()*2,
					Water:      55 + rand.Float32()*2,
					Muscle:     38 + rand.Float32()*2,
					Bone:       3.1,
				})
			}
		}
	}(s.ticker, s.done)

	return nil
}

func (s *demoSession) StopSearching() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return nil
}
