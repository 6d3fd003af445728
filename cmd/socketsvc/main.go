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
	draftcfg "github.com/Mazen286/cubecraft/internal/draftsvc/config"
	"github.com/Mazen286/cubecraft/internal/nats"
	"github.com/Mazen286/cubecraft/internal/socketsvc/broker"
	"github.com/Mazen286/cubecraft/internal/socketsvc/handlers"
	"github.com/Mazen286/cubecraft/internal/socketsvc/routes"
	"github.com/Mazen286/cubecraft/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

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

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service_"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Initialize websocket handler
	s := ws.NewWs()
	h := handlers.NewHandler(s, cfg.SocketRate, cfg.SocketBurst, cfg.SocketPort)

	// Initialize routes
	routes.InitAuth(cfg.JWTSecret)
	routes.SetRoutes(r, h)

	// broker gets the socket lookups injected; ws publishes through it
	b := broker.NewBroker(n.Conn, s.GetConnection, s.GetRoomSockets, s.StoreRoom)
	s.Broker = b

	// replies from the draft service
	subReplies, err := b.Subscribe(comm.SubjectDraft)
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", comm.SubjectDraft, err)
		os.Exit(1)
	}

	// session change fan-out
	subSessions, err := b.Subscribe(comm.SubjectSessionAll)
	if err != nil {
		log.Errorf("Error: unable to subscribe to %s %v", comm.SubjectSessionAll, err)
		os.Exit(1)
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.SocketPort,
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

	subReplies.Unsubscribe()
	subSessions.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
