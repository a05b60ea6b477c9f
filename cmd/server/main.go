package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"civicwatch/internal/auth"
	"civicwatch/internal/config"
	"civicwatch/internal/domain"
	"civicwatch/internal/eventbus"
	"civicwatch/internal/service"
)

type App struct {
	cfg        config.Config
	svc        *service.Service
	bus        eventbus.Bus
	tokens     *auth.Service
	inbox      *inbox
	router     *mux.Router
	instanceID string
}

func main() {
	log.Println("Starting CivicWatch...")

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local listeners always ride the in-process bus; Redis is layered on
	// top when configured so external consumers see the same events.
	inproc := eventbus.NewInProcBus()
	var bus eventbus.Bus = inproc
	var redisBus *eventbus.RedisEventBus
	if cfg.Redis.Host != "" {
		var err error
		redisBus, err = eventbus.NewRedisEventBus(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisBus.Close()
		log.Println("Connected to Redis Event Bus")
		bus = eventbus.NewMultiBus(inproc, redisBus)
	}

	svc := service.New(cfg, bus)
	svc.OnResolved(func(r domain.Report) {
		log.Printf("[CELEBRATE] Report %s (%q) resolved: %s", r.ID, r.Title, r.ResolutionNote)
	})

	// With Redis the inbox reads the shared stream, so it also sees events
	// published by other instances; otherwise it taps the local bus.
	in := newInbox()
	if redisBus != nil {
		go func() {
			err := redisBus.Consume(ctx, notificationsGroup, cfg.Server.InstanceID, in.handle)
			if err != nil && ctx.Err() == nil {
				log.Printf("Notifications consumer stopped: %v", err)
			}
		}()
	} else {
		inproc.Subscribe(in.consume)
	}

	app := &App{
		cfg:        cfg,
		svc:        svc,
		bus:        bus,
		tokens:     auth.NewService(cfg.Auth.JWTSecret),
		inbox:      in,
		router:     mux.NewRouter(),
		instanceID: cfg.Server.InstanceID,
	}
	app.setupRoutes()

	go startEscalationWatcher(ctx, app)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("CivicWatch [%s] listening on port %s", app.instanceID, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
