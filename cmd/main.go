package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/querydesk/config"
	deps "github.com/bwise1/querydesk/internal/debs"
	api "github.com/bwise1/querydesk/internal/http/rest"
	"github.com/bwise1/querydesk/internal/telemetry"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func main() {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Env]: invalid configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		log.Fatalf("[Telemetry]: setup failed: %v", err)
	}

	d, err := deps.New(ctx, cfg)
	if err != nil {
		log.Panicln("failed to open store", "error", err)
	}
	go d.Feed.Run()

	a := &api.API{
		Config: cfg,
		Deps:   d,
	}
	if err := a.Init(); err != nil {
		log.Panicln("failed to initialise api", "error", err)
	}

	go func() {
		log.Printf("Server running on port %v ...", cfg.Port)
		if err := a.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-stopChan

	log.Println("Request to shutdown server. Doing nothing for ", allowConnectionsAfterShutdown)
	waitTimer := time.NewTimer(allowConnectionsAfterShutdown)
	<-waitTimer.C

	log.Println("Shutting down server...")
	if err := a.Shutdown(); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	if err := d.Close(); err != nil {
		log.Printf("closing dependencies: %v", err)
	}
	log.Println("Store connections closed.")

	if err := shutdownTracing(ctx); err != nil {
		log.Printf("[Telemetry]: shutdown: %v", err)
	}
}
