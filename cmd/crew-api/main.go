package main

import (
	"context"
	"fmt"
)

func main() {
	app := mustBootstrapCrewAPI()
	defer app.Close()

	if err := app.Run(); err != nil && err != context.Canceled {
		panic(fmt.Sprintf("crew-api stopped: %v", err))
	}
}
