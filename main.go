package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	apimod "github.com/poornimasewak/nook/modules/api"
	authmod "github.com/poornimasewak/nook/modules/auth"
	relaymod "github.com/poornimasewak/nook/modules/relay"
	storagemod "github.com/poornimasewak/nook/modules/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	port := getEnv("PORT", "4000")
	addr := ":" + port

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}
	logger := app.Logger()

	storageModule := storagemod.NewModule(logger)
	authModule := authmod.NewModule(storageModule, logger)
	relayModule := relaymod.NewModule(storageModule, logger)
	apiModule := apimod.NewModule(addr, storageModule, authModule, relayModule, logger)

	app.Register(storageModule)
	app.Register(authModule)
	app.Register(relayModule)
	app.Register(apiModule)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	logger.Info("Nook started", "addr", addr)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
