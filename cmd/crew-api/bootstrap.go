package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/othaplug/crewtrack/config"
	"github.com/othaplug/crewtrack/internal/api/crew_api"
	"github.com/othaplug/crewtrack/internal/broker/kafka"
	"github.com/othaplug/crewtrack/internal/cache/rediscache"
	"github.com/othaplug/crewtrack/internal/services/extraitems"
	"github.com/othaplug/crewtrack/internal/services/gate"
	"github.com/othaplug/crewtrack/internal/services/incidents"
	"github.com/othaplug/crewtrack/internal/services/locations"
	"github.com/othaplug/crewtrack/internal/services/sessions"
	"github.com/othaplug/crewtrack/internal/storage/pgcrew"
	"github.com/othaplug/crewtrack/internal/storage/redisloc"
)

type crewAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   crewAPIOpts
	api    *crew_api.CrewAPI

	producer *kafka.Producer
	closeDB  func()
}

func mustBootstrapCrewAPI() *crewAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.CrewTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	completedTopic := cfg.Kafka.SessionCompletedTopicName
	if completedTopic == "" {
		completedTopic = "session.completed"
	}
	cacheTTL := time.Duration(cfg.CrewTrack.CurrentSessionTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	locTTL := time.Duration(cfg.CrewTrack.LocationTTLSeconds) * time.Second
	if locTTL <= 0 {
		locTTL = time.Hour
	}
	locMinInterval := time.Duration(cfg.CrewTrack.LocationMinIntervalSeconds) * time.Second
	if locMinInterval <= 0 {
		locMinInterval = locations.DefaultMinInterval
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	locStore := redisloc.New(redisAddr, locTTL)
	limiter := rediscache.NewRateLimiter(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	sessSvc := sessions.New(st, gate.New(st)).
		WithCompletionEvents(producer, completedTopic).
		WithLocations(locStore, redisloc.SessionKey).
		WithCache(rc, cacheTTL)
	locSvc := locations.New(locStore, limiter).WithMinInterval(locMinInterval)

	api := crew_api.New(sessSvc, extraitems.New(st), locSvc, incidents.New(st))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &crewAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: crewAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		api:      api,
		producer: producer,
		closeDB:  st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgcrew.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgcrew.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *crewAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *crewAPIApp) Run() error {
	return runCrewAPI(a.ctx, a.opts, a.api)
}
