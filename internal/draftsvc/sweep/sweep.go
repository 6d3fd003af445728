// Package sweep runs automatic timeout actions for every active session.
package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

type Engine interface {
	ActiveSessions(ctx context.Context) ([]*models.Session, error)
	CheckTimeouts(ctx context.Context, sessionID string) (int, error)
	Snapshot(ctx context.Context, sessionID string) (*models.Snapshot, error)
}

type Sweeper struct {
	eng      Engine
	interval time.Duration
	workers  int
}

func New(eng Engine, interval time.Duration, workers int) *Sweeper {
	if workers <= 0 {
		workers = 1
	}
	return &Sweeper{eng: eng, interval: interval, workers: workers}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Once(ctx)
			if err != nil {
				log.Errorf("timeout sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("timeout sweep applied %d actions", n)
			}
		}
	}
}

// Once checks every active session once and returns how many automatic
// actions were applied. A failing session is logged and skipped.
func (s *Sweeper) Once(ctx context.Context) (int, error) {
	sessions, err := s.eng.ActiveSessions(ctx)
	if err != nil {
		return 0, err
	}

	var applied atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, sess := range sessions {
		id := sess.ID
		g.Go(func() error {
			n, err := s.eng.CheckTimeouts(ctx, id)
			if errors.Is(err, engine.ErrSessionNotFound) {
				return nil
			}
			if err != nil {
				log.Warnf("check timeouts for session %s: %v", id, err)
				return nil
			}
			if n == 0 {
				return nil
			}
			applied.Add(int64(n))

			snap, err := s.eng.Snapshot(ctx, id)
			if err != nil {
				log.Warnf("snapshot session %s: %v", id, err)
				return nil
			}
			if err := engine.CheckConservation(snap); err != nil {
				log.Warnf("data integrity: %v", err)
			}
			return nil
		})
	}
	g.Wait()
	return int(applied.Load()), nil
}
