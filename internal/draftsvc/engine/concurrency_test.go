package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

// peer is a second service instance over the same store, as when several
// replicas serve one session.
func (h *harness) peer(seed int64) *Engine {
	bots := bot.New(h.catalog, bot.DefaultTuning(), rand.New(rand.NewSource(seed)))
	return New(h.store, bots,
		WithClock(h.clock.Now),
		WithNotifier(h.notes),
		WithRand(rand.New(rand.NewSource(seed))),
	)
}

// actForHumans fires timers and plays every human turn it sees until the
// session completes. Rejections are expected when a peer got there first.
func actForHumans(ctx context.Context, eng *Engine, sessionID string) error {
	for ctx.Err() == nil {
		if _, err := eng.CheckTimeouts(ctx, sessionID); err != nil {
			return err
		}
		snap, err := eng.Snapshot(ctx, sessionID)
		if err != nil {
			return err
		}
		s := snap.Session
		if s.Status == models.StatusCompleted {
			return nil
		}

		err = nil
		if s.Mode.Grid() {
			switch ph := s.Auction.Phase.(type) {
			case models.Selecting:
				p := snap.PlayerAtSeat(ph.SelectorSeat)
				if p != nil && !p.IsBot && len(s.GridRemaining) > 0 {
					err = eng.SelectCard(ctx, sessionID, p.ID, s.GridRemaining[0])
				}
			case models.Bidding:
				p := snap.PlayerAtSeat(ph.NextBidderSeat)
				if p != nil && !p.IsBot {
					err = eng.PassBid(ctx, sessionID, p.ID)
				}
			}
		} else {
			for _, p := range snap.Players {
				if !p.IsBot && !p.PickMade && len(p.Hand) > 0 {
					if err = eng.MakePick(ctx, sessionID, p.ID, p.Hand[0]); err != nil {
						break
					}
				}
			}
		}
		var verr *ValidationError
		if err != nil && !errors.As(err, &verr) {
			return err
		}
	}
	return nil
}

// runPeers drives the session from several engines at once while the clock
// moves, calling observe on every snapshot the main goroutine takes.
func (h *harness) runPeers(peers int, observe func(*models.Snapshot)) *models.Snapshot {
	h.t.Helper()
	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < peers; i++ {
		eng := h.peer(int64(100 + i))
		g.Go(func() error { return actForHumans(gctx, eng, h.session) })
	}

	for i := 0; i < 5000 && gctx.Err() == nil; i++ {
		h.clock.Advance(time.Second)
		snap := h.snap()
		observe(snap)
		if snap.Session.Status == models.StatusCompleted {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	require.NoError(h.t, g.Wait())
	return h.snap()
}

func TestConcurrentEnginesCompleteAuction(t *testing.T) {
	h := newHarness(t, auctionParams(4, 2, 2, 6), 2, 2)
	h.start()

	points := map[string]int{}
	snap := h.runPeers(4, func(snap *models.Snapshot) {
		for _, p := range snap.Players {
			if prev, ok := points[p.ID]; ok {
				require.LessOrEqual(t, p.BiddingPoints, prev, "points never go up")
			}
			require.GreaterOrEqual(t, p.BiddingPoints, 0)
			points[p.ID] = p.BiddingPoints
		}
	})

	require.Equal(t, models.StatusCompleted, snap.Session.Status)
	require.NoError(t, CheckConservation(snap))
	spent := 0
	for _, p := range snap.Players {
		assert.Len(t, snap.Drafted(p.ID), 6, "player %s", p.Name)
		spent += snap.Session.Auction.TotalBiddingPoints - p.BiddingPoints
	}
	cost := 0
	for _, pk := range snap.Picks {
		cost += pk.Cost
	}
	assert.Equal(t, spent, cost, "points spent match winning bids")
	assert.Len(t, snap.Burned, 6)
}

func TestConcurrentEnginesCompletePackDraft(t *testing.T) {
	p := packParams()
	p.CardsPerPlayer = 12
	h := newHarness(t, p, 2, 2)
	h.start()

	snap := h.runPeers(4, func(*models.Snapshot) {})

	require.Equal(t, models.StatusCompleted, snap.Session.Status)
	require.NoError(t, CheckConservation(snap))
	for _, p := range snap.Players {
		assert.Len(t, snap.Drafted(p.ID), 12, "player %s", p.Name)
		assert.Empty(t, p.Hand)
	}
	assert.Len(t, snap.Burned, 12)
}
