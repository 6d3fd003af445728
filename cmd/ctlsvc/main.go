package main

import (
	"context"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	config "github.com/Mazen286/cubecraft/configs"
	"github.com/Mazen286/cubecraft/internal/archive"
	"github.com/Mazen286/cubecraft/internal/draftsvc/app"
	"github.com/Mazen286/cubecraft/internal/draftsvc/broker"
	draftcfg "github.com/Mazen286/cubecraft/internal/draftsvc/config"
	"github.com/Mazen286/cubecraft/internal/draftsvc/sweep"
	natscli "github.com/Mazen286/cubecraft/internal/nats"
)

const SERVICE_NAME = "ctl"

var instanceId string

func init() {
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := draftcfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	config.SetLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a, err := app.Build(ctx, cfg, false)
	if err != nil {
		log.Fatalf("Failed to start draft engine: %v", err)
	}
	defer a.Close()

	// Connect to NATS
	n, err := natscli.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service_"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// timeout actions are announced like any other change
	a.Engine.SetNotifier(broker.NewBroker(n.Conn, a.Engine))

	if cfg.MongoURI != "" {
		db, disconnect, err := archive.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer disconnect(context.Background())

		archiver, err := archive.NewArchiver(ctx, db, cfg.ArchiveTTL)
		if err != nil {
			log.Fatalf("Failed to prepare archive: %v", err)
		}
		sub, err := archive.NewListener(a.Engine, archiver).Subscribe(n.Conn)
		if err != nil {
			log.Errorf("Error: unable to subscribe to session changes %v", err)
			os.Exit(1)
		}
		defer sub.Unsubscribe()
		log.Info("archiving completed drafts to MongoDB")
	} else {
		log.Warn("MONGODB_URI not set, completed drafts are not archived")
	}

	log.Infof("%s service sweeping every %s with %d workers", SERVICE_NAME, cfg.CtlInterval, cfg.CtlWorkers)
	sweep.New(a.Engine, cfg.CtlInterval, cfg.CtlWorkers).Run(ctx)

	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
