package main

import (
	"context"
	"log"

	"github.com/aussiebroadwan/siteauth/internal/auth/app"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
