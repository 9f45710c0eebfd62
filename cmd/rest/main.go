package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"market-insight-be/internal/bootstrap"
	"market-insight-be/internal/config"
	"market-insight-be/internal/server"
	"market-insight-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer container.Close()
	defer container.Logger.Sync()

	shutdownTracer := tracer.InitTracer(container.Logger)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start Background Services
	if err := container.NoticeService.Consume(ctx); err != nil {
		log.Fatalf("Failed to start notice consumer: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()

	// 5. Run Server
	if err := srv.Run(); err != nil {
		container.Logger.Error("MAIN", "Server stopped", map[string]interface{}{"error": err.Error()})
	}
}
