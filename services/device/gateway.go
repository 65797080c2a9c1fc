package device

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"scaletrack/models"
)

// Per-device-model wire protocols live in an external BLE gateway; it
// publishes decoded readings as JSON to one broker queue per device family.
// A gatewaySession consumes that queue while bound.

const gatewayQueuePrefix = "scaletrack.readings."

// namePrefixes lists the advertised-name prefixes each family answers to.
var namePrefixes = map[ID][]string{
	ScaleMCU:      {"openScale"},
	MiScale:       {"MI_SCALE", "MIBFS"},
	SanitasSBF70:  {"SANITAS SBF70", "sanitas"},
	MedisanaBS444: {"Medisana"},
}

// gatewayReading is the payload published by the gateway.
type gatewayReading struct {
	MeasuredAt time.Time `json:"measuredAt"`
	Weight     float32   `json:"weight"`
	Fat        float32   `json:"fat"`
	Water      float32   `json:"water"`
	Muscle     float32   `json:"muscle"`
	LBW        float32   `json:"lbw"`
	Bone       float32   `json:"bone"`
	Waist      float32   `json:"waist"`
	Hip        float32   `json:"hip"`
}

type gatewaySession struct {
	id  ID
	url string

	mu     sync.Mutex
	cb     Callback
	conn   *amqp.Connection
	ch     *amqp.Channel
	cancel context.CancelFunc
}

// NewGatewayFactory returns a session factory whose sessions consume gateway
// readings from the broker at url. The Demo family stays in-process.
func NewGatewayFactory(url string) Factory {
	return func(id ID) Session {
		if id == Demo {
			return newDemoSession()
		}
		return &gatewaySession{id: id, url: url}
	}
}

func (s *gatewaySession) CheckDeviceName(name string) bool {
	for _, prefix := range namePrefixes[s.id] {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (s *gatewaySession) RegisterCallback(cb Callback) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *gatewaySession) StartSearching(name string) error {
	ctx, cancel := context.WithCancel(context.Background())

	var conn *amqp.Connection
	err := retry.Do(
		func() error {
			var dialErr error
			conn, dialErr = amqp.Dial(s.url)
			return dialErr
		},
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("dial gateway broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("open gateway channel: %w", err)
	}

	queue := gatewayQueuePrefix + strings.ToLower(string(s.id))
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("declare gateway queue %s: %w", queue, err)
	}

	deliveries, err := ch.Consume(queue, "", true, false, false, false, nil)
	if err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("consume gateway queue %s: %w", queue, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.ch = ch
	s.cancel = cancel
	s.mu.Unlock()

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go s.consume(ctx, name, deliveries, closed)

	slog.Info("gateway session consuming", "device", s.id, "queue", queue, "name", name)
	return nil
}

func (s *gatewaySession) consume(ctx context.Context, name string, deliveries <-chan amqp.Delivery, closed <-chan *amqp.Error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-closed:
			if err != nil {
				slog.Warn("gateway connection closed", "device", s.id, "error", err)
			}
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			var reading gatewayReading
			if err := json.Unmarshal(d.Body, &reading); err != nil {
				slog.Warn("undecodable gateway reading dropped", "device", s.id, "error", err)
				continue
			}

			m := models.Measurement{
				UserID:     models.NoUserID,
				MeasuredAt: reading.MeasuredAt,
				Weight:     reading.Weight,
				Fat:        reading.Fat,
				Water:      reading.Water,
				Muscle:     reading.Muscle,
				LBW:        reading.LBW,
				Bone:       reading.Bone,
				Waist:      reading.Waist,
				Hip:        reading.Hip,
			}
			if m.MeasuredAt.IsZero() {
				m.MeasuredAt = time.Now().UTC().Truncate(time.Minute)
			}

			s.mu.Lock()
			cb := s.cb
			s.mu.Unlock()
			if cb != nil {
				cb(m)
			}
		}
	}
}

func (s *gatewaySession) StopSearching() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.ch != nil {
		s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		conn := s.conn
		s.conn = nil
		if err := conn.Close(); err != nil {
			return fmt.Errorf("close gateway connection: %w", err)
		}
	}
	return nil
}
