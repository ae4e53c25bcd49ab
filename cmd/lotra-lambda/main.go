// Package main is the entry point for the translation Lambda function.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/MeKo-Tech/lotra/internal/backend"
	"github.com/MeKo-Tech/lotra/internal/config"
	"github.com/MeKo-Tech/lotra/internal/lambdafn"
	"github.com/MeKo-Tech/lotra/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if _, err := logging.Setup(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Verbose: cfg.Verbose,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logging: %v\n", err)
		os.Exit(1)
	}

	// The function itself must run the model; a lambda backend here would
	// invoke itself.
	if cfg.Backend.Type != config.BackendONNX {
		slog.Warn("Ignoring backend type inside Lambda", "backend", cfg.Backend.Type)
		cfg.Backend.Type = config.BackendONNX
	}

	// Loaded once per container and reused across invocations.
	router, err := backend.NewRouter(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to initialize translator", "error", err)
		os.Exit(1)
	}

	h := lambdafn.NewHandler(router, &lambdafn.Warmer{})
	lambda.Start(h.Handle)
}
