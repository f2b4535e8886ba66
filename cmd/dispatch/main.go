package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"drone-dispatch/internal/cli"
	"drone-dispatch/internal/config"
	"drone-dispatch/internal/logger"
)

func main() {
	// .env is optional; the environment alone is enough.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fatal Error: %v", err)
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("Fatal Error: Could not initialize logger: %v", err)
	}

	code := cli.Execute(context.Background(), cfg, os.Args[1:], os.Stdout, os.Stderr)
	_ = logger.Close()
	os.Exit(code)
}
