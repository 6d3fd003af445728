package sweep

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/draftsvc/bot"
	"github.com/Mazen286/cubecraft/internal/draftsvc/catalog"
	"github.com/Mazen286/cubecraft/internal/draftsvc/engine"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
	"github.com/Mazen286/cubecraft/internal/draftsvc/store"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func startedSession(t *testing.T, eng *engine.Engine, pool []string) string {
	t.Helper()
	ctx := context.Background()
	s, host, err := eng.CreateSession(ctx, engine.CreateParams{
		Mode: models.ModePack, PlayerCount: 2, CardsPerPlayer: 4, UnitSize: 3, BurnPerUnit: 1, TimerSeconds: 30, Pool: pool,
	})
	require.NoError(t, err)
	_, err = eng.JoinSession(ctx, s.RoomCode, "bob")
	require.NoError(t, err)
	require.NoError(t, eng.StartDraft(ctx, s.ID, host.ID))
	return s.ID
}

func TestOnceAppliesDueTimeouts(t *testing.T) {
	pool := make([]string, 12)
	cards := make([]models.Card, len(pool))
	for i := range pool {
		pool[i] = fmt.Sprintf("c%02d", i)
		cards[i] = models.Card{ID: pool[i], Score: float64(i)}
	}
	c := &clock{t: time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)}
	eng := engine.New(store.NewMemStore(),
		bot.New(catalog.New(cards), bot.DefaultTuning(), rand.New(rand.NewSource(1))),
		engine.WithClock(c.now))

	first := startedSession(t, eng, pool)
	second := startedSession(t, eng, pool)
	sw := New(eng, time.Second, 2)

	n, err := sw.Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	c.advance(35 * time.Second)
	n, err = sw.Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, id := range []string{first, second} {
		snap, err := eng.Snapshot(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Session.CurrentPick)
		for _, pk := range snap.Picks {
			assert.True(t, pk.WasAutoPick)
		}
	}
}

type failing struct{}

func (failing) ActiveSessions(context.Context) ([]*models.Session, error) {
	return []*models.Session{{ID: "gone"}, {ID: "broken"}}, nil
}

func (failing) CheckTimeouts(_ context.Context, id string) (int, error) {
	if id == "gone" {
		return 0, engine.ErrSessionNotFound
	}
	return 0, errors.New("store down")
}

func (failing) Snapshot(context.Context, string) (*models.Snapshot, error) {
	return nil, errors.New("unreachable")
}

func TestOnceSkipsFailingSessions(t *testing.T) {
	n, err := New(failing{}, time.Second, 4).Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(failing{}, time.Millisecond, 1).Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
