package engine

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
	"github.com/Mazen286/cubecraft/internal/draftsvc/turn"
)

// gridDirection is clockwise on odd grids and counter-clockwise on even ones.
func gridDirection(grid int) models.Direction {
	if grid%2 == 1 {
		return models.Clockwise
	}
	return models.CounterClockwise
}

func underCap(s *models.Session, p *models.Player) bool {
	return p != nil && p.AcquiredThisUnit < s.UnitSize
}

// startGrid shuffles the seat order once, hands out bidding points and
// opens the first grid with seat 0 selecting.
func (e *Engine) startGrid(ctx context.Context, snap *models.Snapshot) error {
	s := snap.Session
	next := s.Clone()
	if next.Auction == nil {
		next.Auction = &models.AuctionState{
			BidTimerSeconds:    e.cfg.DefaultBidTimerSeconds,
			TotalBiddingPoints: e.cfg.DefaultBiddingPoints,
		}
	}

	players := make([]*models.Player, 0, len(snap.Players))
	for _, p := range snap.Players {
		players = append(players, p.Clone())
	}
	e.shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
	for i, p := range players {
		p.Seat = i
		p.BiddingPoints = next.Auction.TotalBiddingPoints
		p.AcquiredThisUnit = 0
		p.PickMade = false
		p.Hand = nil
	}

	next.Status = models.StatusInProgress
	next.CurrentUnit = 1
	next.CurrentPick = 0
	next.Direction = gridDirection(1)
	next.PickStartedAt = e.stamp()
	next.Pause = models.Pause{}
	next.GridRemaining = append([]string(nil), s.Units[0]...)
	next.Auction.Seq = 1
	next.Auction.Phase = models.Selecting{SelectorSeat: 0}

	res, err := e.store.Commit(ctx, store.Mutation{
		Cond:    store.Expect().WithStatus(models.StatusWaiting),
		Session: next,
		Players: players,
	})
	if err != nil {
		return unavailable("start grid draft", err)
	}
	if res == store.Applied {
		log.Infof("session %s started: %s draft, %d players", s.ID, s.Mode, len(players))
		e.notify(ctx, s.ID, ChangeStarted)
	}
	return nil
}

// SelectCard puts a grid card up. In open mode, or when nobody else can
// still take cards this grid, the selector gets it for free.
func (e *Engine) SelectCard(ctx context.Context, sessionID, playerID, cardID string) error {
	snap, err := e.loadWithPicks(ctx, sessionID)
	if err != nil {
		return err
	}
	s := snap.Session
	if err := e.requireActive(s, true); err != nil {
		return err
	}
	sel, ok := s.Auction.Phase.(models.Selecting)
	if !ok {
		return ErrWrongPhase
	}
	selector := snap.PlayerAtSeat(sel.SelectorSeat)
	if snap.Player(playerID) == nil {
		return ErrNotInSession
	}
	if selector == nil || selector.ID != playerID {
		return ErrNotYourTurn
	}
	if !contains(s.GridRemaining, cardID) {
		return ErrCardNotAvailable
	}
	if _, err := e.selectCard(ctx, snap, selector, cardID, false); err != nil {
		return err
	}
	e.drive(ctx, sessionID)
	return nil
}

func (e *Engine) selectCard(ctx context.Context, snap *models.Snapshot, selector *models.Player, cardID string, auto bool) (store.Result, error) {
	s := snap.Session
	others := 0
	for _, p := range snap.Players {
		if p.ID != selector.ID && underCap(s, p) {
			others++
		}
	}

	var mut store.Mutation
	change := ChangeSelected
	if s.Mode == models.ModeOpen || others == 0 {
		mut = e.award(snap, selector.ID, 0, cardID, selector.Seat, auto)
		change = ChangeResolved
	} else {
		dir := gridDirection(s.CurrentUnit)
		first, _ := turn.NextEligible(selector.Seat, len(snap.Players), dir, func(seat int) bool {
			p := snap.PlayerAtSeat(seat)
			return p != nil && p.ID != selector.ID && underCap(s, p)
		})
		next := s.Clone()
		next.Direction = dir
		next.Auction.Seq++
		next.Auction.Phase = models.Bidding{
			SelectorSeat:   selector.Seat,
			CardID:         cardID,
			NextBidderSeat: first,
			BidStartedAt:   e.now(),
			Direction:      dir,
		}
		mut = store.Mutation{Session: next}
	}
	mut.Cond = guard().AtAuction(s.Auction.Seq)
	return e.commitAuction(ctx, mut, change)
}

// PlaceBid raises the current bid. Only the designated next bidder may bid.
func (e *Engine) PlaceBid(ctx context.Context, sessionID, playerID string, amount int) error {
	snap, b, bidder, err := e.loadBidder(ctx, sessionID, playerID)
	if err != nil {
		return err
	}
	if amount <= b.CurrentBid {
		return ErrBidTooLow
	}
	if amount > bidder.BiddingPoints {
		return ErrInsufficientPoints
	}
	if !underCap(snap.Session, bidder) {
		return ErrAtCap
	}
	if _, err := e.placeBid(ctx, snap, b, bidder, amount); err != nil {
		return err
	}
	e.drive(ctx, sessionID)
	return nil
}

// PassBid drops the player out of the current auction.
func (e *Engine) PassBid(ctx context.Context, sessionID, playerID string) error {
	snap, b, bidder, err := e.loadBidder(ctx, sessionID, playerID)
	if err != nil {
		return err
	}
	if _, err := e.passBid(ctx, snap, b, bidder); err != nil {
		return err
	}
	e.drive(ctx, sessionID)
	return nil
}

func (e *Engine) loadBidder(ctx context.Context, sessionID, playerID string) (*models.Snapshot, models.Bidding, *models.Player, error) {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, models.Bidding{}, nil, err
	}
	s := snap.Session
	if err := e.requireActive(s, true); err != nil {
		return nil, models.Bidding{}, nil, err
	}
	if s.Mode == models.ModeOpen {
		return nil, models.Bidding{}, nil, ErrWrongMode
	}
	b, ok := s.Auction.Phase.(models.Bidding)
	if !ok {
		return nil, models.Bidding{}, nil, ErrWrongPhase
	}
	if snap.Player(playerID) == nil {
		return nil, models.Bidding{}, nil, ErrNotInSession
	}
	bidder := snap.PlayerAtSeat(b.NextBidderSeat)
	if bidder == nil || bidder.ID != playerID {
		return nil, models.Bidding{}, nil, ErrNotYourTurn
	}
	return snap, b, bidder, nil
}

func (e *Engine) placeBid(ctx context.Context, snap *models.Snapshot, b models.Bidding, bidder *models.Player, amount int) (store.Result, error) {
	b.Bids = append(append([]models.Bid(nil), b.Bids...), models.Bid{PlayerID: bidder.ID, Amount: amount})
	b.CurrentBid = amount
	b.CurrentBidderID = bidder.ID
	event := models.BidEvent{
		SessionID: snap.Session.ID,
		Unit:      snap.Session.CurrentUnit,
		CardID:    b.CardID,
		PlayerID:  bidder.ID,
		Amount:    amount,
	}
	return e.continueBidding(ctx, snap, b, bidder.Seat, event)
}

func (e *Engine) passBid(ctx context.Context, snap *models.Snapshot, b models.Bidding, bidder *models.Player) (store.Result, error) {
	b.Passed = append(append([]string(nil), b.Passed...), bidder.ID)
	event := models.BidEvent{
		SessionID: snap.Session.ID,
		Unit:      snap.Session.CurrentUnit,
		CardID:    b.CardID,
		PlayerID:  bidder.ID,
		Amount:    b.CurrentBid,
		Passed:    true,
	}
	return e.continueBidding(ctx, snap, b, bidder.Seat, event)
}

// contenders are the bidders who could still end up with the card. The
// selector never bids and only takes the card when nobody is left.
func contenders(snap *models.Snapshot, b models.Bidding) []*models.Player {
	s := snap.Session
	var out []*models.Player
	for _, p := range snap.Players {
		if p.Seat == b.SelectorSeat || b.HasPassed(p.ID) || !underCap(s, p) {
			continue
		}
		if p.ID == b.CurrentBidderID || len(b.Bids) == 0 || p.BiddingPoints > b.CurrentBid {
			out = append(out, p)
		}
	}
	return out
}

// canBid reports whether p may be asked to raise the current bid.
func canBid(s *models.Session, b models.Bidding, p *models.Player) bool {
	return p != nil &&
		p.Seat != b.SelectorSeat &&
		p.ID != b.CurrentBidderID &&
		!b.HasPassed(p.ID) &&
		underCap(s, p) &&
		p.BiddingPoints > b.CurrentBid
}

// continueBidding either resolves the auction or hands the turn to the
// next bidder after fromSeat.
func (e *Engine) continueBidding(ctx context.Context, snap *models.Snapshot, b models.Bidding, fromSeat int, event models.BidEvent) (store.Result, error) {
	s := snap.Session

	// a sole remaining bidder wins at the current bid, 0 if nobody bid;
	// with nobody left the card goes to the selector
	winner := ""
	switch left := contenders(snap, b); len(left) {
	case 0:
		winner = highBidder(snap, b)
	case 1:
		winner = left[0].ID
	}

	var mut store.Mutation
	change := ChangeBid
	if winner == "" {
		nextSeat, ok := turn.NextEligible(fromSeat, len(snap.Players), b.Direction, func(seat int) bool {
			return canBid(s, b, snap.PlayerAtSeat(seat))
		})
		if ok {
			next := s.Clone()
			b.NextBidderSeat = nextSeat
			b.BidStartedAt = e.now()
			next.Auction.Phase = b
			next.Auction.Seq++
			mut = store.Mutation{Session: next}
		} else {
			winner = highBidder(snap, b)
		}
	}
	if winner != "" {
		mut = e.award(snap, winner, b.CurrentBid, b.CardID, b.SelectorSeat, false)
		change = ChangeResolved
	}
	mut.Cond = guard().AtAuction(s.Auction.Seq)
	mut.BidEvents = []models.BidEvent{event}
	return e.commitAuction(ctx, mut, change)
}

// highBidder is the current high bidder, or the selector if nobody bid.
func highBidder(snap *models.Snapshot, b models.Bidding) string {
	if b.CurrentBidderID != "" {
		return b.CurrentBidderID
	}
	if p := snap.PlayerAtSeat(b.SelectorSeat); p != nil {
		return p.ID
	}
	return ""
}

// award gives cardID to winnerID for bid points and moves the auction on,
// all as one mutation.
func (e *Engine) award(snap *models.Snapshot, winnerID string, bid int, cardID string, selectorSeat int, auto bool) store.Mutation {
	s := snap.Session
	next := s.Clone()
	now := e.now()

	players := make([]*models.Player, 0, len(snap.Players))
	var winner *models.Player
	for _, p := range snap.Players {
		c := p.Clone()
		if c.ID == winnerID {
			winner = c
		}
		players = append(players, c)
	}
	winner.BiddingPoints -= bid
	winner.AcquiredThisUnit++

	pick := models.Pick{
		SessionID:       s.ID,
		PlayerID:        winner.ID,
		CardID:          cardID,
		Unit:            s.CurrentUnit,
		PickNumber:      winner.AcquiredThisUnit,
		Cost:            bid,
		PickTimeSeconds: elapsedSeconds(s.PickStartedAt, now),
		WasAutoPick:     auto,
	}
	next.GridRemaining = remove(next.GridRemaining, cardID)
	burned := e.advance(next, players, selectorSeat)

	return store.Mutation{
		Session: next,
		Players: players,
		Picks:   []models.Pick{pick},
		Burned:  burned,
	}
}

// advance rotates the selector to the next seat under cap, or closes the
// grid when everyone is capped or the grid is empty.
func (e *Engine) advance(next *models.Session, players []*models.Player, selectorSeat int) []models.BurnedCard {
	n := len(players)
	bySeat := make(map[int]*models.Player, n)
	open := false
	for _, p := range players {
		bySeat[p.Seat] = p
		if underCap(next, p) {
			open = true
		}
	}
	next.Auction.Seq++
	next.PickStartedAt = e.stamp()

	if open && len(next.GridRemaining) > 0 {
		seat, ok := turn.NextEligible(selectorSeat, n, models.Clockwise, func(seat int) bool {
			return underCap(next, bySeat[seat])
		})
		if ok {
			next.Auction.Phase = models.Selecting{SelectorSeat: seat}
			return nil
		}
	}

	var burned []models.BurnedCard
	for _, c := range next.GridRemaining {
		burned = append(burned, models.BurnedCard{SessionID: next.ID, CardID: c, Unit: next.CurrentUnit, Seat: -1})
	}
	for _, p := range players {
		if p.AcquiredThisUnit != next.UnitSize {
			log.Warnf("data integrity: session %s grid %d closing with player %s holding %d of %d cards",
				next.ID, next.CurrentUnit, p.ID, p.AcquiredThisUnit, next.UnitSize)
		}
	}
	next.GridRemaining = nil

	if next.CurrentUnit >= layoutOf(next).Units {
		next.Status = models.StatusCompleted
		next.Auction.Phase = models.GridComplete{Grid: next.CurrentUnit}
		return burned
	}

	next.CurrentUnit++
	next.GridRemaining = append([]string(nil), next.Units[next.CurrentUnit-1]...)
	next.Direction = gridDirection(next.CurrentUnit)
	for _, p := range players {
		p.AcquiredThisUnit = 0
	}
	next.Auction.Phase = models.Selecting{SelectorSeat: (next.CurrentUnit - 1) % n}
	return burned
}

func (e *Engine) commitAuction(ctx context.Context, mut store.Mutation, change Change) (store.Result, error) {
	s := mut.Session
	res, err := e.store.Commit(ctx, mut)
	if err != nil {
		return res, unavailable("commit auction", err)
	}
	switch res {
	case store.Applied:
		e.notify(ctx, s.ID, change)
		if s.Status == models.StatusCompleted {
			log.Infof("session %s completed", s.ID)
			e.notify(ctx, s.ID, ChangeCompleted)
		}
	case store.ConflictStale:
		log.Debugf("session %s: auction transition at seq %d already applied", s.ID, *mut.Cond.AuctionSeq)
	default:
		log.Warnf("data integrity: session %s auction commit rejected: %s", s.ID, res)
	}
	return res, nil
}

// botBid asks the bot engine for a bid and falls back to passing when the
// answer is not a legal raise.
func (e *Engine) botBid(ctx context.Context, snap *models.Snapshot, b models.Bidding, p *models.Player) (store.Result, error) {
	s := snap.Session
	amount, ok := e.bots.Bid(bot.BidInput{
		CardID:      b.CardID,
		Drafted:     snap.Drafted(p.ID),
		TotalPoints: s.Auction.TotalBiddingPoints,
		Points:      p.BiddingPoints,
		CurrentBid:  b.CurrentBid,
		Grid:        s.CurrentUnit,
		Acquired:    p.AcquiredThisUnit,
		Cap:         s.UnitSize,
		Remaining:   len(s.GridRemaining),
	})
	if ok && amount > b.CurrentBid && amount <= p.BiddingPoints {
		return e.placeBid(ctx, snap, b, p, amount)
	}
	return e.passBid(ctx, snap, b, p)
}
