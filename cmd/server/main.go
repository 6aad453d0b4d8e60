package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sensorlink/internal/app"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}
