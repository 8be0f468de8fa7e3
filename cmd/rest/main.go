package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"ba-assistant-be/internal/bootstrap"
	"ba-assistant-be/internal/config"
	"ba-assistant-be/internal/server"
	"ba-assistant-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(cfg.Tracing, "ba-assistant-backend")

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to bootstrap: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run server and background services until a signal arrives
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		container.WebSocketHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return container.AssistantService.RunJanitor(gctx)
	})
	if container.ConsumerService != nil {
		g.Go(func() error {
			return container.ConsumerService.Consume(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	container.Close()

	tracerCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(tracerCtx); err != nil {
		log.Printf("Tracer shutdown: %v", err)
	}
}
