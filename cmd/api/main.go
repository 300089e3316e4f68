package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tinyapps/internal/gateway/app"
)

// shutdownWindow covers draining in-flight requests plus the store flush,
// which may include a snapshot upload to the mirror.
const shutdownWindow = 10 * time.Second

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("app init: %v", err)
	}

	go func() {
		if err := a.Start(); err != nil {
			log.Printf("app host: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down, flushing program store...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}

	log.Println("Bye")
}
