// Package engine coordinates draft sessions. It holds no per-session state:
// every operation reads the store, decides, and writes back under a guard,
// so any number of engine instances can serve the same session.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
	"github.com/Mazen286/cubecraft/internal/draftsvc/timeout"
)

type Store interface {
	CreateSession(ctx context.Context, s *models.Session, host *models.Player) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	GetSessionByRoomCode(ctx context.Context, code string) (*models.Session, error)
	ListSessionsByStatus(ctx context.Context, status models.Status) ([]*models.Session, error)
	DeleteSession(ctx context.Context, id string) error

	AddPlayer(ctx context.Context, p *models.Player) (store.Result, error)
	RemovePlayer(ctx context.Context, id string) (store.Result, error)
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	ListPlayers(ctx context.Context, sessionID string) ([]*models.Player, error)
	UpdatePlayer(ctx context.Context, p *models.Player, cond store.PlayerCond) (store.Result, error)
	SetConnected(ctx context.Context, playerID string, connected bool) error

	RecordPick(ctx context.Context, pick models.Pick, p *models.Player, cond store.PlayerCond) (store.Result, error)
	GetPickBySlot(ctx context.Context, sessionID, playerID string, unit, pickNumber int) (*models.Pick, error)
	ListPicks(ctx context.Context, sessionID string) ([]models.Pick, error)
	ListBurned(ctx context.Context, sessionID string) ([]models.BurnedCard, error)
	ListBidEvents(ctx context.Context, sessionID string) ([]models.BidEvent, error)

	Commit(ctx context.Context, m store.Mutation) (store.Result, error)
}

// Bots makes decisions for AI seats. *bot.Engine implements it.
type Bots interface {
	RankHand(hand []string) []string
	ChooseSelection(pool, drafted []string) (string, bool)
	Bid(in bot.BidInput) (int, bool)
}

type Change string

const (
	ChangeCreated    Change = "created"
	ChangeJoined     Change = "joined"
	ChangeLeft       Change = "left"
	ChangeStarted    Change = "started"
	ChangePicked     Change = "picked"
	ChangeAdvanced   Change = "advanced"
	ChangeSelected   Change = "selected"
	ChangeBid        Change = "bid"
	ChangeResolved   Change = "resolved"
	ChangePaused     Change = "paused"
	ChangeResumed    Change = "resumed"
	ChangeCompleted  Change = "completed"
	ChangeCancelled  Change = "cancelled"
	ChangeConnection Change = "connection"
)

// Notifier is told after every applied write. Delivery is best effort;
// observers re-read the session on each notification.
type Notifier interface {
	SessionChanged(ctx context.Context, sessionID string, change Change)
}

type nopNotifier struct{}

func (nopNotifier) SessionChanged(context.Context, string, Change) {}

type Config struct {
	Grace                  time.Duration
	BotLiveness            time.Duration
	ResumeCountdown        time.Duration
	DefaultBiddingPoints   int
	DefaultBidTimerSeconds int
	MaxDriveSteps          int // bound on inline bot decisions per call
}

func DefaultConfig() Config {
	return Config{
		Grace:                  timeout.DefaultGrace,
		BotLiveness:            timeout.DefaultBotLiveness,
		ResumeCountdown:        3 * time.Second,
		DefaultBiddingPoints:   100,
		DefaultBidTimerSeconds: 15,
		MaxDriveSteps:          500,
	}
}

type Engine struct {
	store    Store
	bots     Bots
	notifier Notifier
	monitor  timeout.Monitor
	cfg      Config
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRand fixes the source used for pool shuffles, seat order and room codes.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func New(s Store, bots Bots, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		bots:     bots,
		notifier: nopNotifier{},
		cfg:      DefaultConfig(),
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.MaxDriveSteps <= 0 {
		e.cfg.MaxDriveSteps = DefaultConfig().MaxDriveSteps
	}
	e.monitor = timeout.New(e.cfg.Grace, e.cfg.BotLiveness)
	return e
}

// SetNotifier replaces the notifier after construction, for wiring a
// broker that itself needs the engine.
func (e *Engine) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	e.notifier = n
}

func (e *Engine) notify(ctx context.Context, sessionID string, change Change) {
	e.notifier.SessionChanged(ctx, sessionID, change)
}

func (e *Engine) shuffle(n int, swap func(i, j int)) {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	e.rng.Shuffle(n, swap)
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

// load reads the session and its players, seat ordered.
func (e *Engine) load(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	s, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, unavailable("get session", err)
	}
	players, err := e.store.ListPlayers(ctx, sessionID)
	if err != nil {
		return nil, unavailable("list players", err)
	}
	snap := &models.Snapshot{Session: s, Players: players}
	snap.SortPlayers()
	return snap, nil
}

// loadWithPicks also reads picks, which grid bots need for their profile.
func (e *Engine) loadWithPicks(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	snap, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	picks, err := e.store.ListPicks(ctx, sessionID)
	if err != nil {
		return nil, unavailable("list picks", err)
	}
	snap.Picks = picks
	return snap, nil
}

// Snapshot returns the full state of a session for observers.
func (e *Engine) Snapshot(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	snap, err := e.loadWithPicks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	burned, err := e.store.ListBurned(ctx, sessionID)
	if err != nil {
		return nil, unavailable("list burned", err)
	}
	snap.Burned = burned
	return snap, nil
}

func (e *Engine) BidHistory(ctx context.Context, sessionID string) ([]models.BidEvent, error) {
	events, err := e.store.ListBidEvents(ctx, sessionID)
	if err != nil {
		return nil, unavailable("list bid events", err)
	}
	return events, nil
}

// ActiveSessions lists sessions a sweeper should check for timeouts.
func (e *Engine) ActiveSessions(ctx context.Context) ([]*models.Session, error) {
	sessions, err := e.store.ListSessionsByStatus(ctx, models.StatusInProgress)
	if err != nil {
		return nil, unavailable("list sessions", err)
	}
	return sessions, nil
}

// requireActive checks the session accepts draft actions at now.
func (e *Engine) requireActive(s *models.Session, grid bool) error {
	if s.Status != models.StatusInProgress {
		return ErrNotInProgress
	}
	if s.Mode.Grid() != grid {
		return ErrWrongMode
	}
	if s.Pause.Paused || s.Pause.Waiting(e.now()) {
		return ErrPaused
	}
	return nil
}

// guard is the base condition for every in-progress transition.
func guard() store.Cond {
	return store.Expect().WithStatus(models.StatusInProgress).WithPaused(false)
}

func (e *Engine) stamp() *time.Time {
	t := e.now()
	return &t
}

func elapsedSeconds(start *time.Time, now time.Time) int {
	if start == nil || now.Before(*start) {
		return 0
	}
	return int(now.Sub(*start) / time.Second)
}

func remove(cards []string, id string) []string {
	out := make([]string, 0, len(cards))
	removed := false
	for _, c := range cards {
		if c == id && !removed {
			removed = true
			continue
		}
		out = append(out, c)
	}
	return out
}

func contains(cards []string, id string) bool {
	for _, c := range cards {
		if c == id {
			return true
		}
	}
	return false
}
