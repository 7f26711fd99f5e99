package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/config"
	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/server"
)

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Parse flags
	port := flag.String("port", cfg.Server.Port, "HTTP port")
	host := flag.String("host", cfg.Server.Host, "HTTP host")
	storage := flag.String("storage", cfg.Storage.Path, "Storage root directory")
	inMemory := flag.Bool("memory", cfg.Storage.InMemory, "Keep all state in memory")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Storage.Path = *storage
	cfg.Storage.InMemory = *inMemory

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx)
	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
}
