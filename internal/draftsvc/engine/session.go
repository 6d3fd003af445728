package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
	"github.com/Mazen286/cubecraft/internal/draftsvc/timeout"
)

const (
	roomCodeCharset  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
	roomCodeAttempts = 10
)

type CreateParams struct {
	Mode            models.Mode
	HostName        string
	PlayerCount     int
	CardsPerPlayer  int
	UnitSize        int // pack size, or cards each player takes per grid
	BurnPerUnit     int
	TimerSeconds    int
	BidTimerSeconds int // grid modes; 0 uses the configured default
	BiddingPoints   int // auction mode; 0 uses the configured default
	Pool            []string
}

// CreateSession validates the configuration, shuffles and partitions the
// pool, and seats the host at seat 0.
func (e *Engine) CreateSession(ctx context.Context, p CreateParams) (*models.Session, *models.Player, error) {
	layout, err := ComputeLayout(p.Mode, p.PlayerCount, p.CardsPerPlayer, p.UnitSize, p.BurnPerUnit)
	if err != nil {
		return nil, nil, err
	}
	if p.TimerSeconds < 0 || p.BidTimerSeconds < 0 || p.BiddingPoints < 0 {
		return nil, nil, invalid(CodeInvalidConfig, "timers and points cannot be negative")
	}
	seen := make(map[string]bool, len(p.Pool))
	for _, id := range p.Pool {
		if seen[id] {
			return nil, nil, invalid(CodeInvalidConfig, "card %s appears twice in the pool", id)
		}
		seen[id] = true
	}
	if len(p.Pool) < layout.TotalCardsNeeded {
		return nil, nil, invalid(CodeNotEnoughCards, "pool has %d cards, %d needed", len(p.Pool), layout.TotalCardsNeeded)
	}

	pool := append([]string(nil), p.Pool...)
	e.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	code, err := e.roomCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	s := &models.Session{
		ID:             uuid.NewString(),
		RoomCode:       code,
		Mode:           p.Mode,
		Status:         models.StatusWaiting,
		PlayerCount:    p.PlayerCount,
		CardsPerPlayer: p.CardsPerPlayer,
		UnitSize:       p.UnitSize,
		BurnPerUnit:    p.BurnPerUnit,
		TimerSeconds:   p.TimerSeconds,
		Direction:      models.Left,
		Units:          partition(pool, layout.TotalUnits, layout.CardsPerUnit),
	}
	if p.Mode.Grid() {
		bidTimer := p.BidTimerSeconds
		if bidTimer == 0 {
			bidTimer = e.cfg.DefaultBidTimerSeconds
		}
		points := p.BiddingPoints
		if points == 0 {
			points = e.cfg.DefaultBiddingPoints
		}
		s.Auction = &models.AuctionState{BidTimerSeconds: bidTimer, TotalBiddingPoints: points}
	}

	name := p.HostName
	if name == "" {
		name = "Host"
	}
	host := &models.Player{
		ID:          uuid.NewString(),
		SessionID:   s.ID,
		Name:        name,
		Seat:        0,
		IsHost:      true,
		IsConnected: true,
	}

	if err := e.store.CreateSession(ctx, s, host); err != nil {
		return nil, nil, unavailable("create session", err)
	}
	log.Infof("session %s created: mode=%s players=%d units=%d cards=%d", s.ID, s.Mode, s.PlayerCount, layout.TotalUnits, layout.TotalCardsNeeded)
	e.notify(ctx, s.ID, ChangeCreated)
	return s, host, nil
}

func (e *Engine) roomCode(ctx context.Context) (string, error) {
	for i := 0; i < roomCodeAttempts; i++ {
		b := make([]byte, roomCodeLength)
		for j := range b {
			b[j] = roomCodeCharset[e.intn(len(roomCodeCharset))]
		}
		code := string(b)
		_, err := e.store.GetSessionByRoomCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", unavailable("check room code", err)
		}
	}
	return "", fmt.Errorf("no free room code after %d attempts: %w", roomCodeAttempts, ErrUnavailable)
}

// JoinSession seats a new human player in the lowest free seat.
func (e *Engine) JoinSession(ctx context.Context, roomCode, name string) (*models.Player, error) {
	s, err := e.store.GetSessionByRoomCode(ctx, roomCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, unavailable("get session", err)
	}
	p := &models.Player{
		ID:          uuid.NewString(),
		SessionID:   s.ID,
		Name:        name,
		IsConnected: true,
	}
	if err := e.seat(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddBot fills the lowest free seat with a bot.
func (e *Engine) AddBot(ctx context.Context, sessionID, hostID string) (*models.Player, error) {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(snap, hostID); err != nil {
		return nil, err
	}
	p := &models.Player{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		IsBot:       true,
		IsConnected: true,
	}
	if err := e.seat(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// seat re-reads the roster and retries with the next free seat when
// another joiner takes the same one. It gives up only once no seat is free.
func (e *Engine) seat(ctx context.Context, p *models.Player) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := e.load(ctx, p.SessionID)
		if err != nil {
			return err
		}
		s := snap.Session
		if s.Status != models.StatusWaiting {
			return ErrAlreadyStarted
		}
		if len(snap.Players) >= s.PlayerCount {
			return ErrSessionFull
		}

		taken := make(map[int]bool, len(snap.Players))
		for _, other := range snap.Players {
			taken[other.Seat] = true
		}
		p.Seat = 0
		for taken[p.Seat] {
			p.Seat++
		}
		if p.IsBot {
			p.Name = fmt.Sprintf("Bot %d", p.Seat+1)
		}

		res, err := e.store.AddPlayer(ctx, p)
		if err != nil {
			return unavailable("add player", err)
		}
		if res == store.Applied {
			e.notify(ctx, p.SessionID, ChangeJoined)
			return nil
		}
		log.Debugf("seat %d in session %s: %s, retrying", p.Seat, p.SessionID, res)
	}
}

// RemoveBot deletes a bot before the draft starts.
func (e *Engine) RemoveBot(ctx context.Context, sessionID, hostID, botID string) error {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := requireHost(snap, hostID); err != nil {
		return err
	}
	b := snap.Player(botID)
	if b == nil {
		return ErrNotInSession
	}
	if !b.IsBot {
		return ErrNotABot
	}
	res, err := e.store.RemovePlayer(ctx, botID)
	if err != nil {
		return unavailable("remove player", err)
	}
	if res != store.Applied {
		return ErrAlreadyStarted
	}
	e.notify(ctx, sessionID, ChangeLeft)
	return nil
}

func requireHost(snap *models.Snapshot, playerID string) error {
	p := snap.Player(playerID)
	if p == nil {
		return ErrNotInSession
	}
	if !p.IsHost {
		return ErrNotHost
	}
	return nil
}

// StartDraft deals the first unit once every seat is filled.
func (e *Engine) StartDraft(ctx context.Context, sessionID, hostID string) error {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := requireHost(snap, hostID); err != nil {
		return err
	}
	if snap.Session.Status != models.StatusWaiting {
		return ErrAlreadyStarted
	}
	if len(snap.Players) != snap.Session.PlayerCount {
		return ErrRosterIncomplete
	}

	if snap.Session.Mode.Grid() {
		err = e.startGrid(ctx, snap)
	} else {
		err = e.startPack(ctx, snap)
	}
	if err != nil {
		return err
	}
	e.drive(ctx, sessionID)
	return nil
}

// TogglePause pauses or resumes the session and returns the new paused
// state. Pausing captures the active timer; resuming restarts it after a
// fixed countdown from a server timestamp.
func (e *Engine) TogglePause(ctx context.Context, sessionID, hostID string) (bool, error) {
	var snap *models.Snapshot
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		snap, err = e.load(ctx, sessionID)
		if err != nil {
			return false, err
		}
		if err := requireHost(snap, hostID); err != nil {
			return false, err
		}
		s := snap.Session
		if s.Status != models.StatusInProgress {
			return false, ErrNotInProgress
		}

		now := e.now()
		next := s.Clone()
		cond := store.Expect().
			WithStatus(models.StatusInProgress).
			WithPaused(s.Pause.Paused).
			AtPick(s.CurrentUnit, s.CurrentPick)
		if s.Auction != nil {
			cond = cond.AtAuction(s.Auction.Seq)
		}

		change := ChangePaused
		if !s.Pause.Paused {
			next.Pause = models.Pause{Paused: true, RemainingAtPause: activeRemaining(s, now)}
		} else {
			resumeAt := now.Add(e.cfg.ResumeCountdown)
			next.Pause = models.Pause{RemainingAtPause: s.Pause.RemainingAtPause, ResumeAt: &resumeAt}
			reanchor(next, resumeAt)
			change = ChangeResumed
		}

		res, err := e.store.Commit(ctx, store.Mutation{Cond: cond, Session: next})
		if err != nil {
			return s.Pause.Paused, unavailable("toggle pause", err)
		}
		if res == store.Applied {
			log.Infof("session %s %s", sessionID, change)
			e.notify(ctx, sessionID, change)
			return next.Pause.Paused, nil
		}
		// another transition moved the session between read and write
	}
	return snap.Session.Pause.Paused, nil
}

// activeRemaining is the time left on whichever timer is running.
func activeRemaining(s *models.Session, now time.Time) time.Duration {
	if s.Auction != nil {
		if b, ok := s.Auction.Phase.(models.Bidding); ok {
			return timeout.Remaining(s.Auction.BidTimerSeconds, b.BidStartedAt, s.Pause, now)
		}
	}
	if s.PickStartedAt == nil {
		return 0
	}
	return timeout.Remaining(s.TimerSeconds, *s.PickStartedAt, s.Pause, now)
}

// reanchor moves the running timer's start so that it reads the paused
// remaining time at resumeAt.
func reanchor(s *models.Session, resumeAt time.Time) {
	remaining := s.Pause.RemainingAtPause
	if s.Auction != nil {
		if b, ok := s.Auction.Phase.(models.Bidding); ok {
			b.BidStartedAt = resumeAt.Add(remaining - time.Duration(s.Auction.BidTimerSeconds)*time.Second)
			s.Auction.Phase = b
			return
		}
	}
	start := resumeAt.Add(remaining - time.Duration(s.TimerSeconds)*time.Second)
	s.PickStartedAt = &start
}

// CancelSession ends a session that has not completed and deletes it
// with everything that belongs to it.
func (e *Engine) CancelSession(ctx context.Context, sessionID, hostID string) error {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := requireHost(snap, hostID); err != nil {
		return err
	}
	s := snap.Session
	switch s.Status {
	case models.StatusCompleted:
		return invalid(CodeNotInProgress, "session already completed")
	case models.StatusCancelled:
		return nil
	}

	next := s.Clone()
	next.Status = models.StatusCancelled
	res, err := e.store.Commit(ctx, store.Mutation{Cond: store.Expect().WithStatus(s.Status), Session: next})
	if err != nil {
		return unavailable("cancel session", err)
	}
	if res != store.Applied {
		return nil
	}
	e.notify(ctx, sessionID, ChangeCancelled)

	if err := e.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return unavailable("delete session", err)
	}
	log.Infof("session %s cancelled", sessionID)
	return nil
}

// SetConnected records whether a player currently has a live connection.
func (e *Engine) SetConnected(ctx context.Context, sessionID, playerID string, connected bool) error {
	p, err := e.store.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInSession
		}
		return unavailable("get player", err)
	}
	if p.SessionID != sessionID {
		return ErrNotInSession
	}
	if p.IsConnected == connected {
		return nil
	}
	if err := e.store.SetConnected(ctx, playerID, connected); err != nil {
		return unavailable("set connected", err)
	}
	e.notify(ctx, sessionID, ChangeConnection)
	return nil
}
