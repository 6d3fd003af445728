package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/catalog"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
)

var epoch = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) SessionChanged(_ context.Context, _ string, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) saw(c Change) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.changes {
		if x == c {
			return true
		}
	}
	return false
}

// cardID numbers cards so that a higher number means a higher score.
func cardID(i int) string {
	return fmt.Sprintf("card-%03d", i)
}

func testPool(n int) ([]string, *catalog.Catalog) {
	ids := make([]string, n)
	cards := make([]models.Card, n)
	for i := 0; i < n; i++ {
		ids[i] = cardID(i)
		cards[i] = models.Card{ID: ids[i], Name: ids[i], Score: float64(i), Colors: []string{"WUBRG"[i%5 : i%5+1]}}
	}
	return ids, catalog.New(cards)
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	eng     *Engine
	store   *store.MemStore
	clock   *fakeClock
	notes   *recorder
	catalog *catalog.Catalog
	session string
	host    string
	humans  []string // joined humans, host first
}

func newHarness(t *testing.T, p CreateParams, humans, bots int) *harness {
	t.Helper()
	return newHarnessWith(t, p, humans, bots, nil)
}

// newHarnessWith lets wrap put a decorator between the engine and the
// in-memory store.
func newHarnessWith(t *testing.T, p CreateParams, humans, bots int, wrap func(Store) Store) *harness {
	t.Helper()
	layout, err := ComputeLayout(p.Mode, p.PlayerCount, p.CardsPerPlayer, p.UnitSize, p.BurnPerUnit)
	require.NoError(t, err)
	pool, cat := testPool(layout.TotalCardsNeeded)
	if p.Pool == nil {
		p.Pool = pool
	}

	h := &harness{
		t:       t,
		ctx:     context.Background(),
		store:   store.NewMemStore(),
		clock:   &fakeClock{t: epoch},
		notes:   &recorder{},
		catalog: cat,
	}
	botEngine := bot.New(cat, bot.DefaultTuning(), rand.New(rand.NewSource(7)))
	var st Store = h.store
	if wrap != nil {
		st = wrap(h.store)
	}
	h.eng = New(st, botEngine,
		WithClock(h.clock.Now),
		WithNotifier(h.notes),
		WithRand(rand.New(rand.NewSource(42))),
	)

	s, host, err := h.eng.CreateSession(h.ctx, p)
	require.NoError(t, err)
	h.session, h.host = s.ID, host.ID
	h.humans = append(h.humans, host.ID)

	for i := 1; i < humans; i++ {
		pl, err := h.eng.JoinSession(h.ctx, s.RoomCode, fmt.Sprintf("player-%d", i))
		require.NoError(t, err)
		h.humans = append(h.humans, pl.ID)
	}
	for i := 0; i < bots; i++ {
		_, err := h.eng.AddBot(h.ctx, s.ID, host.ID)
		require.NoError(t, err)
	}
	return h
}

func (h *harness) start() {
	h.t.Helper()
	require.NoError(h.t, h.eng.StartDraft(h.ctx, h.session, h.host))
}

func (h *harness) snap() *models.Snapshot {
	h.t.Helper()
	snap, err := h.eng.Snapshot(h.ctx, h.session)
	require.NoError(h.t, err)
	return snap
}

func (h *harness) atSeat(seat int) *models.Player {
	h.t.Helper()
	p := h.snap().PlayerAtSeat(seat)
	require.NotNil(h.t, p)
	return p
}

func (h *harness) player(id string) *models.Player {
	h.t.Helper()
	p := h.snap().Player(id)
	require.NotNil(h.t, p)
	return p
}

func (h *harness) picksOf(playerID string) []models.Pick {
	var out []models.Pick
	for _, pk := range h.snap().Picks {
		if pk.PlayerID == playerID {
			out = append(out, pk)
		}
	}
	return out
}

func (h *harness) phase() models.Phase {
	h.t.Helper()
	s := h.snap().Session
	require.NotNil(h.t, s.Auction)
	return s.Auction.Phase
}
