package engine

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
	"github.com/Mazen286/cubecraft/internal/draftsvc/turn"
)

// packFor is the pack dealt to seat at the start of unit.
func packFor(s *models.Session, unit, seat int) []string {
	return append([]string(nil), s.Units[(unit-1)*s.PlayerCount+seat]...)
}

func (e *Engine) startPack(ctx context.Context, snap *models.Snapshot) error {
	s := snap.Session
	next := s.Clone()
	next.Status = models.StatusInProgress
	next.CurrentUnit = 1
	next.CurrentPick = 1
	next.Direction = models.Left
	next.PickStartedAt = e.stamp()
	next.Pause = models.Pause{}

	players := make([]*models.Player, 0, len(snap.Players))
	for _, p := range snap.Players {
		c := p.Clone()
		c.Hand = packFor(s, 1, p.Seat)
		c.PickMade = false
		players = append(players, c)
	}

	res, err := e.store.Commit(ctx, store.Mutation{
		Cond:    store.Expect().WithStatus(models.StatusWaiting),
		Session: next,
		Players: players,
	})
	if err != nil {
		return unavailable("start pack draft", err)
	}
	if res == store.Applied {
		log.Infof("session %s started: pack draft, %d players", s.ID, len(players))
		e.notify(ctx, s.ID, ChangeStarted)
	}
	return nil
}

// MakePick takes cardID from the player's current pack. Repeating a pick
// that already succeeded is not an error.
func (e *Engine) MakePick(ctx context.Context, sessionID, playerID, cardID string) error {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := e.requireActive(snap.Session, false); err != nil {
		return err
	}
	p := snap.Player(playerID)
	if p == nil {
		return ErrNotInSession
	}
	if err := e.pick(ctx, snap, p, cardID, false); err != nil {
		return err
	}
	e.drive(ctx, sessionID)
	return nil
}

func (e *Engine) pick(ctx context.Context, snap *models.Snapshot, p *models.Player, cardID string, auto bool) error {
	s := snap.Session
	if p.PickMade {
		return e.alreadyPicked(ctx, s, p, cardID, auto)
	}
	if !contains(p.Hand, cardID) {
		return ErrCardNotInHand
	}

	// strip the hand as it is now, not as it was when the snapshot was read
	fresh, err := e.store.GetPlayer(ctx, p.ID)
	if err != nil {
		return unavailable("get player", err)
	}
	if fresh.PickMade {
		return e.alreadyPicked(ctx, s, p, cardID, auto)
	}
	if !contains(fresh.Hand, cardID) {
		if auto || p.IsBot {
			// the packs moved on since the snapshot
			return nil
		}
		return ErrCardNotInHand
	}
	fresh.Hand = remove(fresh.Hand, cardID)
	fresh.PickMade = true

	res, err := e.store.RecordPick(ctx, models.Pick{
		SessionID:       s.ID,
		PlayerID:        p.ID,
		CardID:          cardID,
		Unit:            s.CurrentUnit,
		PickNumber:      s.CurrentPick,
		PickTimeSeconds: elapsedSeconds(s.PickStartedAt, e.now()),
		WasAutoPick:     auto,
	}, fresh, pickCond(s))
	if err != nil {
		return unavailable("record pick", err)
	}
	switch res {
	case store.Applied:
		e.notify(ctx, s.ID, ChangePicked)
		return nil
	case store.ConflictCard, store.ConflictSlot:
		// a pick row without the hand update, left by older data
		prev, err := e.recordedPick(ctx, s, p.ID)
		if err != nil {
			return err
		}
		if prev == nil {
			return ErrCardAlreadyPicked
		}
		if res == store.ConflictCard && prev.CardID != cardID {
			return ErrCardAlreadyPicked
		}
		return e.finishPick(ctx, s, p.ID, prev.CardID)
	default:
		return e.alreadyPicked(ctx, s, p, cardID, auto)
	}
}

func pickCond(s *models.Session) store.PlayerCond {
	return store.Unpicked(store.Expect().WithStatus(models.StatusInProgress).AtPick(s.CurrentUnit, s.CurrentPick))
}

func (e *Engine) recordedPick(ctx context.Context, s *models.Session, playerID string) (*models.Pick, error) {
	prev, err := e.store.GetPickBySlot(ctx, s.ID, playerID, s.CurrentUnit, s.CurrentPick)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get pick", err)
	}
	return prev, nil
}

// alreadyPicked answers a pick for a slot that is filled or has moved on.
// Repeating the recorded card succeeds; bot and automatic picks lost to
// another trigger are done as well.
func (e *Engine) alreadyPicked(ctx context.Context, s *models.Session, p *models.Player, cardID string, auto bool) error {
	if auto || p.IsBot {
		return nil
	}
	prev, err := e.recordedPick(ctx, s, p.ID)
	if err != nil {
		return err
	}
	if prev != nil && prev.CardID == cardID {
		return nil
	}
	return ErrNotYourTurn
}

// finishPick strips an already recorded card from the player's hand.
func (e *Engine) finishPick(ctx context.Context, s *models.Session, playerID, cardID string) error {
	fresh, err := e.store.GetPlayer(ctx, playerID)
	if err != nil {
		return unavailable("get player", err)
	}
	if fresh.PickMade {
		return nil
	}
	fresh.Hand = remove(fresh.Hand, cardID)
	fresh.PickMade = true

	res, err := e.store.UpdatePlayer(ctx, fresh, pickCond(s))
	if err != nil {
		return unavailable("update player", err)
	}
	if res == store.Applied {
		e.notify(ctx, s.ID, ChangePicked)
	}
	return nil
}

// pickBest picks the best-ranked card still available, moving down the
// ranking when a card turns out to be claimed already.
func (e *Engine) pickBest(ctx context.Context, snap *models.Snapshot, p *models.Player, auto bool) (bool, error) {
	for _, cardID := range e.bots.RankHand(p.Hand) {
		err := e.pick(ctx, snap, p, cardID, auto)
		if errors.Is(err, ErrCardAlreadyPicked) {
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	log.Warnf("session %s: no pickable card for player %s (hand %d)", snap.Session.ID, p.ID, len(p.Hand))
	return false, nil
}

// passPacks advances the round once every player has picked: either the
// packs rotate, or the unit finishes and its leftovers are burned.
func (e *Engine) passPacks(ctx context.Context, snap *models.Snapshot) (bool, error) {
	s := snap.Session
	if s.Status != models.StatusInProgress || s.Mode.Grid() || s.Pause.Paused {
		return false, nil
	}
	for _, p := range snap.Players {
		if !p.PickMade {
			return false, nil
		}
	}

	n := len(snap.Players)
	next := s.Clone()
	players := make([]*models.Player, 0, n)
	finished := true
	for _, p := range snap.Players {
		players = append(players, p.Clone())
		if len(p.Hand) > s.BurnPerUnit {
			finished = false
		}
	}

	var burned []models.BurnedCard
	change := ChangeAdvanced
	if finished {
		for _, p := range players {
			if len(p.Hand) != s.BurnPerUnit {
				log.Warnf("data integrity: session %s unit %d closing with %d cards in seat %d, expected %d",
					s.ID, s.CurrentUnit, len(p.Hand), p.Seat, s.BurnPerUnit)
			}
			for _, c := range p.Hand {
				burned = append(burned, models.BurnedCard{SessionID: s.ID, CardID: c, Unit: s.CurrentUnit, Seat: p.Seat})
			}
			p.Hand = nil
		}
		if s.CurrentUnit < layoutOf(s).Units {
			next.CurrentUnit = s.CurrentUnit + 1
			next.CurrentPick = 1
			next.Direction = s.Direction.Reverse()
			for _, p := range players {
				p.Hand = packFor(s, next.CurrentUnit, p.Seat)
			}
		} else {
			next.Status = models.StatusCompleted
			change = ChangeCompleted
		}
	} else {
		hands := make(map[int][]string, n)
		for _, p := range players {
			hands[turn.Next(p.Seat, n, s.Direction)] = p.Hand
		}
		for _, p := range players {
			p.Hand = hands[p.Seat]
		}
		next.CurrentPick = s.CurrentPick + 1
	}
	for _, p := range players {
		p.PickMade = false
	}
	next.PickStartedAt = e.stamp()

	res, err := e.store.Commit(ctx, store.Mutation{
		Cond:    guard().AtPick(s.CurrentUnit, s.CurrentPick),
		Session: next,
		Players: players,
		Burned:  burned,
	})
	if err != nil {
		return false, unavailable("pass packs", err)
	}
	if res != store.Applied {
		log.Debugf("session %s: pass at unit %d pick %d already applied (%s)", s.ID, s.CurrentUnit, s.CurrentPick, res)
		return false, nil
	}
	if change == ChangeCompleted {
		log.Infof("session %s completed", s.ID)
	}
	e.notify(ctx, s.ID, change)
	return true, nil
}
