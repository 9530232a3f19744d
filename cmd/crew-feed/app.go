package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/othaplug/crewtrack/config"
	"github.com/othaplug/crewtrack/internal/broker/kafka"
	"github.com/othaplug/crewtrack/internal/broker/messages"
	"github.com/othaplug/crewtrack/internal/cache/rediscache"
	"github.com/othaplug/crewtrack/internal/models"
	"github.com/othaplug/crewtrack/internal/services/locations"
	"github.com/othaplug/crewtrack/internal/storage/redisloc"
)

type pingConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
	Close() error
}

type feedFactories struct {
	newStore       func(cfg *config.Config) locations.Store
	newRateLimiter func(cfg *config.Config) locations.Limiter
	newConsumer    func(cfg *config.Config, topic, group string) pingConsumer
}

func defaultFeedFactories() feedFactories {
	return feedFactories{
		newStore: func(cfg *config.Config) locations.Store {
			locTTL := time.Duration(cfg.CrewTrack.LocationTTLSeconds) * time.Second
			if locTTL <= 0 {
				locTTL = time.Hour
			}
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return redisloc.New(redisAddr, locTTL)
		},
		newRateLimiter: func(cfg *config.Config) locations.Limiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newConsumer: func(cfg *config.Config, topic, group string) pingConsumer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewConsumer(brokers, topic, group)
		},
	}
}

func RunCrewFeed(ctx context.Context, cfg *config.Config, f feedFactories) error {
	topic := cfg.Kafka.LocationPingsTopicName
	if topic == "" {
		topic = "location.pings"
	}
	group := cfg.CrewTrack.KafkaConsumerGroup
	if group == "" {
		group = "crew-feed"
	}
	httpAddr := cfg.CrewTrack.FeedHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8082"
	}
	buf := cfg.CrewTrack.FeedSourceBuffer
	if buf <= 0 {
		buf = 256
	}
	minInterval := time.Duration(cfg.CrewTrack.LocationMinIntervalSeconds) * time.Second
	if minInterval <= 0 {
		minInterval = locations.DefaultMinInterval
	}

	svc := locations.New(f.newStore(cfg), f.newRateLimiter(cfg)).WithMinInterval(minInterval)

	source := locations.NewChannelSource(buf)
	watcher := locations.NewWatcher(svc, source)

	consumer := f.newConsumer(cfg, topic, group)
	defer func() { _ = consumer.Close() }()

	consumeErr := make(chan error, 1)
	go func() {
		slog.Info("kafka consumer started", "topic", topic, "group", group)
		consumeErr <- consumer.Consume(ctx, func(_key, value []byte) error {
			var m messages.LocationPing
			if err := json.Unmarshal(value, &m); err != nil {
				// битое сообщение коммитим и идём дальше
				slog.Warn("malformed location ping", "error", err.Error())
				return nil
			}
			source.Offer(models.LocationPing{
				SessionID: m.SessionID,
				DeviceID:  m.DeviceID,
				Lat:       m.Lat,
				Lng:       m.Lng,
				Accuracy:  m.Accuracy,
				Speed:     m.Speed,
				Heading:   m.Heading,
				Timestamp: m.Timestamp,
			})
			return nil
		})
		_ = source.Close()
	}()

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Run(ctx)
	}()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runFeedHTTPServer(ctx, feedHTTPOpts{
			httpAddr:    httpAddr,
			swaggerPath: os.Getenv("swaggerPath"),
			watcher:     watcher,
			cfg:         cfg,
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-consumeErr:
		return err
	case err := <-watchErr:
		return err
	case err := <-httpErr:
		return err
	}
}
