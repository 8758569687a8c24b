package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storyweave/internal/gateway/app"
)

func main() {
	a, err := app.New(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	go func() {
		if err := a.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	grace := a.ShutdownGrace()
	log.Printf("gateway: draining requests and running steps grace=%s", grace)
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
