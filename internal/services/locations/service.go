package locations

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/models"
	"github.com/othaplug/crewtrack/internal/storage/redisloc"
)

const DefaultMinInterval = 15 * time.Second

type Store interface {
	Put(ctx context.Context, ping models.LocationPing) error
	Get(ctx context.Context, key string) (*models.LocationPing, bool, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Service ingests crew location pings. Pings are lossy telemetry: anything
// over the per-key rate, malformed, or failing storage is dropped, never
// surfaced to the sender.
type Service struct {
	store       Store
	limiter     Limiter
	minInterval time.Duration
}

func New(store Store, limiter Limiter) *Service {
	return &Service{
		store:       store,
		limiter:     limiter,
		minInterval: DefaultMinInterval,
	}
}

func (s *Service) WithMinInterval(d time.Duration) *Service {
	if d > 0 {
		s.minInterval = d
	}
	return s
}

func validate(ping *models.LocationPing) error {
	if ping.DeviceID == "" {
		return errors.New("deviceId is required")
	}
	if ping.Lat < -90 || ping.Lat > 90 || ping.Lng < -180 || ping.Lng > 180 {
		return errors.Errorf("coordinates out of range: %f,%f", ping.Lat, ping.Lng)
	}
	if ping.Timestamp.IsZero() {
		ping.Timestamp = time.Now().UTC()
	}
	return nil
}

// Ingest stores the ping unless the key is throttled. Returns whether the ping
// was accepted; дропнутый ping — штатный исход, не ошибка.
func (s *Service) Ingest(ctx context.Context, ping models.LocationPing) bool {
	if err := validate(&ping); err != nil {
		slog.Warn("location ping rejected", "device_id", ping.DeviceID, "error", err)
		return false
	}

	key := redisloc.Key(ping)
	allowed, _, err := s.limiter.Allow(ctx, "rl:"+key, 1, s.minInterval)
	if err != nil {
		// не душим трекинг из-за лимитера
		slog.Warn("location throttle check failed, accepting ping", "key", key, "error", err)
		allowed = true
	}
	if !allowed {
		return false
	}

	if err := s.store.Put(ctx, ping); err != nil {
		slog.Error("location store failed", "key", key, "error", err)
		return false
	}
	return true
}

// Last returns the freshest known location, preferring the session key and
// falling back to the bare device key.
func (s *Service) Last(ctx context.Context, sessionID, deviceID string) (*models.LocationPing, bool, error) {
	if sessionID != "" {
		ping, ok, err := s.store.Get(ctx, redisloc.SessionKey(sessionID))
		if err != nil {
			return nil, false, err
		}
		if ok {
			return ping, true, nil
		}
	}
	if deviceID == "" {
		return nil, false, nil
	}
	return s.store.Get(ctx, redisloc.DeviceKey(deviceID))
}
