package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/othaplug/crewtrack/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := RunCrewFeed(ctx, cfg, defaultFeedFactories()); err != nil && err != context.Canceled {
		panic(fmt.Sprintf("crew-feed stopped: %v", err))
	}
}
