// Package redisloc keeps the last known location per session or device in
// Redis. Last-writer-wins, not a log: track history is a reporting concern
// outside this core.
package redisloc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/othaplug/crewtrack/internal/models"
)

type Store struct {
	c   *redis.Client
	ttl time.Duration
}

// New opens a store. ttl bounds how long a stale location survives after a
// device goes dark; zero means keep forever.
func New(addr string, ttl time.Duration) *Store {
	return &Store{
		c:   redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// Key is "session:<id>" when the ping carries a session, else "device:<id>".
func Key(ping models.LocationPing) string {
	if ping.SessionID != nil && *ping.SessionID != "" {
		return "loc:session:" + *ping.SessionID
	}
	return "loc:device:" + ping.DeviceID
}

func SessionKey(sessionID string) string { return "loc:session:" + sessionID }
func DeviceKey(deviceID string) string   { return "loc:device:" + deviceID }

func (s *Store) Put(ctx context.Context, ping models.LocationPing) error {
	b, err := json.Marshal(ping)
	if err != nil {
		return errors.Wrap(err, "marshal ping")
	}
	if err := s.c.Set(ctx, Key(ping), b, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set location")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*models.LocationPing, bool, error) {
	b, err := s.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get location")
	}
	var ping models.LocationPing
	if err := json.Unmarshal(b, &ping); err != nil {
		return nil, false, errors.Wrap(err, "unmarshal ping")
	}
	return &ping, true, nil
}
