package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  session_completed_topic_name: "session.completed"
  location_pings_topic_name: "location.pings"
redis:
  host: "localhost"
  port: 6379
crewtrack:
  http_addr: ":8080"
  kafka_consumer_group: "crew-feed"
  current_session_ttl_seconds: 600
  location_ttl_seconds: 3600
  location_min_interval_seconds: 15
  feed_http_addr: ":8082"
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "session.completed", cfg.Kafka.SessionCompletedTopicName)
	require.Equal(t, "location.pings", cfg.Kafka.LocationPingsTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.CrewTrack.HTTPAddr)
	require.Equal(t, 15, cfg.CrewTrack.LocationMinIntervalSeconds)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
