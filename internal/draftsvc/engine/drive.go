package engine

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
	"github.com/Mazen286/cubecraft/internal/draftsvc/timeout"
)

// drive plays bot turns and settles finished rounds until a human has to
// act, nothing changes, or the step bound is hit.
func (e *Engine) drive(ctx context.Context, sessionID string) {
	for step := 0; step < e.cfg.MaxDriveSteps; step++ {
		if ctx.Err() != nil {
			return
		}
		snap, err := e.loadWithPicks(ctx, sessionID)
		if err != nil {
			log.Errorf("drive session %s: %v", sessionID, err)
			return
		}
		s := snap.Session
		if s.Status != models.StatusInProgress || s.Pause.Paused || s.Pause.Waiting(e.now()) {
			return
		}

		var moved bool
		if s.Mode.Grid() {
			moved, err = e.stepGrid(ctx, snap)
		} else {
			moved, err = e.stepPack(ctx, snap)
		}
		if err != nil {
			log.Errorf("drive session %s: %v", sessionID, err)
			return
		}
		if !moved {
			return
		}
	}
	log.Warnf("session %s: stopped driving bots after %d steps", sessionID, e.cfg.MaxDriveSteps)
}

func (e *Engine) stepPack(ctx context.Context, snap *models.Snapshot) (bool, error) {
	moved := false
	for _, p := range snap.Players {
		if !p.IsBot || p.PickMade {
			continue
		}
		picked, err := e.pickBest(ctx, snap, p, false)
		if err != nil {
			return false, err
		}
		moved = moved || picked
	}
	if moved {
		return true, nil
	}
	return e.passPacks(ctx, snap)
}

func (e *Engine) stepGrid(ctx context.Context, snap *models.Snapshot) (bool, error) {
	s := snap.Session
	if s.Auction == nil {
		return false, nil
	}

	var res store.Result
	var err error
	switch ph := s.Auction.Phase.(type) {
	case models.Selecting:
		p := snap.PlayerAtSeat(ph.SelectorSeat)
		if p == nil || !p.IsBot {
			return false, nil
		}
		cardID, ok := e.bots.ChooseSelection(s.GridRemaining, snap.Drafted(p.ID))
		if !ok {
			return false, nil
		}
		res, err = e.selectCard(ctx, snap, p, cardID, false)
	case models.Bidding:
		p := snap.PlayerAtSeat(ph.NextBidderSeat)
		if p == nil || !p.IsBot {
			return false, nil
		}
		res, err = e.botBid(ctx, snap, ph, p)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// stale means a peer moved the auction; either way there is a new state
	return res == store.Applied || res == store.ConflictStale, nil
}

// CheckTimeouts applies every automatic action due for the session, then
// lets bots catch up. It returns how many actions were applied.
func (e *Engine) CheckTimeouts(ctx context.Context, sessionID string) (int, error) {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, a := range e.monitor.Check(snap, e.now()) {
		ok, err := e.applyTimeout(ctx, sessionID, a)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	e.drive(ctx, sessionID)
	return applied, nil
}

// applyTimeout re-reads the session and acts only if the action is still due.
func (e *Engine) applyTimeout(ctx context.Context, sessionID string, a timeout.Action) (bool, error) {
	if a.Kind == timeout.BotRetry {
		log.Infof("session %s: retrying bot %s", sessionID, a.PlayerID)
		return true, nil
	}

	snap, err := e.loadWithPicks(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !due(e.monitor.Check(snap, e.now()), a) {
		return false, nil
	}
	s := snap.Session
	p := snap.Player(a.PlayerID)
	if p == nil {
		return false, nil
	}

	switch a.Kind {
	case timeout.AutoPick:
		log.Infof("session %s: pick timer expired for %s, auto-picking", sessionID, p.ID)
		return e.pickBest(ctx, snap, p, true)
	case timeout.AutoSelect:
		cardID, ok := e.bots.ChooseSelection(s.GridRemaining, snap.Drafted(p.ID))
		if !ok {
			return false, nil
		}
		log.Infof("session %s: selection timer expired for %s, auto-selecting %s", sessionID, p.ID, cardID)
		res, err := e.selectCard(ctx, snap, p, cardID, true)
		return res == store.Applied, err
	case timeout.AutoPass:
		b, ok := s.Auction.Phase.(models.Bidding)
		if !ok {
			return false, nil
		}
		log.Infof("session %s: bid timer expired for %s, auto-passing", sessionID, p.ID)
		res, err := e.passBid(ctx, snap, b, p)
		return res == store.Applied, err
	}
	return false, nil
}

func due(actions []timeout.Action, a timeout.Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}
