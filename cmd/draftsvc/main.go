package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/Mazen286/cubecraft/configs"
	"github.com/Mazen286/cubecraft/internal/comm"
	"github.com/Mazen286/cubecraft/internal/draftsvc/app"
	"github.com/Mazen286/cubecraft/internal/draftsvc/broker"
	draftcfg "github.com/Mazen286/cubecraft/internal/draftsvc/config"
	"github.com/Mazen286/cubecraft/internal/draftsvc/handlers"
	nats "github.com/Mazen286/cubecraft/internal/nats"
)

const SERVICE_NAME = "draft"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := draftcfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	config.SetLevel(cfg.LogLevel)

	a, err := app.Build(context.Background(), cfg, true)
	if err != nil {
		log.Fatalf("Failed to start draft engine: %v", err)
	}
	defer a.Close()

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service_"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// init peer message broker; it also announces session changes
	b := broker.NewBroker(n.Conn, a.Engine)
	a.Engine.SetNotifier(b)

	// subscribe to socket service
	sub, err := b.QueueSubscribeSocketService(comm.SubjectSocket, SERVICE_NAME+"svc")
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(1)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(a.Engine, cfg.DraftPort)
	h.InitAuth(cfg.JWTSecret, cfg.LogLevel == "debug")
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.DraftPort,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
