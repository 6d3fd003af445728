// Package app assembles the draft engine from configuration for the
// service binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/catalog"
	"github.com/Mazen286/cubecraft/internal/draftsvc/config"
	"github.com/Mazen286/cubecraft/internal/draftsvc/db"
	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
)

type App struct {
	Engine  *engine.Engine
	Store   engine.Store
	Catalog *catalog.Catalog
	Pool    *pgxpool.Pool // nil with the memory backend
}

// Close releases the database pool.
func (a *App) Close() {
	if a.Pool != nil {
		db.ClosePool()
	}
}

// Build connects the configured store, loads the card catalog and bot
// tuning, and returns a ready engine. With migrate set it also applies
// pending schema migrations.
func Build(ctx context.Context, cfg config.Config, migrate bool, opts ...engine.Option) (*App, error) {
	a := &App{}

	var err error
	switch cfg.StoreBackend {
	case config.BackendMemory:
		a.Store = store.NewMemStore()
		a.Catalog, err = fileCatalog(cfg.CatalogPath)
	default:
		if migrate {
			if err := db.Migrate(cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}
		a.Pool, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		log.Info("pg connection established successfully")
		a.Store = store.NewPgStore(a.Pool)
		a.Catalog, err = dbCatalog(ctx, catalog.NewCardStore(a.Pool), cfg.CatalogPath)
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Infof("card catalog loaded: %d cards", a.Catalog.Len())

	tuning, err := loadTuning(cfg.BotTuningPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	bots := bot.New(a.Catalog, tuning, rand.New(rand.NewSource(time.Now().UnixNano())))

	opts = append([]engine.Option{engine.WithConfig(cfg.Engine())}, opts...)
	a.Engine = engine.New(a.Store, bots, opts...)
	return a, nil
}

func fileCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		log.Warn("no CATALOG_PATH set, bots will treat every card as unscored")
		return catalog.New(nil), nil
	}
	return catalog.LoadFile(path)
}

// dbCatalog seeds the cards table from path when one is given, then reads
// the whole table back.
func dbCatalog(ctx context.Context, cards *catalog.CardStore, path string) (*catalog.Catalog, error) {
	if path != "" {
		seed, err := catalog.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := cards.Upsert(ctx, seed.Cards()); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		log.Infof("seeded %d cards from %s", seed.Len(), path)
	}
	return cards.Load(ctx)
}

func loadTuning(path string) (bot.Tuning, error) {
	t, err := bot.LoadTuning(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("bot tuning %s not found, using defaults", path)
		return bot.DefaultTuning(), nil
	}
	return t, err
}
