package bot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mazen286/cubecraft/internal/draftsvc/catalog"
	"github.com/Mazen286/cubecraft/internal/draftsvc/models"
)

// scripted returns queued floats and always the same Intn result.
type scripted struct {
	floats []float64
	intn   int
}

func (s *scripted) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scripted) Intn(n int) int {
	if s.intn >= n {
		return n - 1
	}
	return s.intn
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]models.Card{
		{ID: "bomb", Score: 95, Colors: []string{"B"}, Archetypes: []string{"control"}, Type: "creature"},
		{ID: "good-r", Score: 80, Colors: []string{"R"}, Archetypes: []string{"aggro"}, Type: "instant"},
		{ID: "mid-r", Score: 65, Colors: []string{"R"}, Archetypes: []string{"aggro"}, Type: "creature"},
		{ID: "mid-b", Score: 65, Colors: []string{"B"}, Archetypes: []string{"control"}, Type: "creature"},
		{ID: "filler", Score: 20, Colors: []string{"G"}, Type: "creature"},
		{ID: "r1", Score: 50, Colors: []string{"R"}, Archetypes: []string{"aggro"}, Type: "creature"},
		{ID: "r2", Score: 50, Colors: []string{"R"}, Archetypes: []string{"aggro"}, Type: "creature"},
		{ID: "r3", Score: 50, Colors: []string{"R"}, Archetypes: []string{"aggro"}, Type: "creature"},
		{ID: "r4", Score: 50, Colors: []string{"R"}, Archetypes: []string{"aggro"}, Type: "creature"},
	})
}

func TestRankHandOrdersByScoreKeepingTies(t *testing.T) {
	e := New(testCatalog(), DefaultTuning(), &scripted{})

	ranked := e.RankHand([]string{"filler", "mid-r", "bomb", "mid-b", "unknown"})

	assert.Equal(t, []string{"bomb", "mid-r", "mid-b", "filler", "unknown"}, ranked)
}

func TestChooseSelectionPrefersFit(t *testing.T) {
	e := New(testCatalog(), DefaultTuning(), &scripted{})
	drafted := []string{"r1", "r2", "r3", "r4"}

	id, ok := e.ChooseSelection([]string{"mid-b", "mid-r", "filler"}, drafted)
	require.True(t, ok)
	assert.Equal(t, "mid-r", id)

	_, ok = e.ChooseSelection(nil, drafted)
	assert.False(t, ok)
}

func TestBidInterestedBidsMinimumPlusIncrement(t *testing.T) {
	rng := &scripted{floats: []float64{0.1}, intn: 1}
	e := New(testCatalog(), DefaultTuning(), rng)

	amount, ok := e.Bid(BidInput{CardID: "bomb", TotalPoints: 100, Points: 100, CurrentBid: 3, Grid: 1, Cap: 3})

	require.True(t, ok)
	assert.Equal(t, 5, amount)
}

func TestBidPassesAboveWillingness(t *testing.T) {
	e := New(testCatalog(), DefaultTuning(), &scripted{floats: []float64{0.0}})

	_, ok := e.Bid(BidInput{CardID: "filler", TotalPoints: 100, Points: 100, CurrentBid: 10, Grid: 1, Cap: 3})

	assert.False(t, ok)
}

func TestBidNeverExceedsPoints(t *testing.T) {
	e := New(testCatalog(), DefaultTuning(), &scripted{floats: []float64{0.0}, intn: 2})

	amount, ok := e.Bid(BidInput{CardID: "bomb", TotalPoints: 100, Points: 4, CurrentBid: 3, Grid: 1, Cap: 3})
	require.True(t, ok)
	assert.Equal(t, 4, amount)

	_, ok = e.Bid(BidInput{CardID: "bomb", TotalPoints: 100, Points: 3, CurrentBid: 3, Grid: 1, Cap: 3})
	assert.False(t, ok)
}

func TestBidSkipsOffColorOnceCommitted(t *testing.T) {
	drafted := []string{"r1", "r2", "r3", "r4"}

	e := New(testCatalog(), DefaultTuning(), &scripted{floats: []float64{0.0}})
	_, ok := e.Bid(BidInput{CardID: "mid-b", Drafted: drafted, TotalPoints: 100, Points: 100, Grid: 1, Cap: 3})
	assert.False(t, ok, "off-color mid tier card")

	e = New(testCatalog(), DefaultTuning(), &scripted{floats: []float64{0.9}})
	_, ok = e.Bid(BidInput{CardID: "bomb", Drafted: drafted, TotalPoints: 100, Points: 100, Grid: 1, Cap: 3})
	assert.False(t, ok, "bomb without a hate draft roll")

	e = New(testCatalog(), DefaultTuning(), &scripted{floats: []float64{0.01}})
	amount, ok := e.Bid(BidInput{CardID: "bomb", Drafted: drafted, TotalPoints: 100, Points: 100, Grid: 1, Cap: 3})
	assert.True(t, ok, "hate draft")
	assert.Equal(t, 1, amount)
}

func TestBidBluffsOnMidTier(t *testing.T) {
	// first roll fails the interest gate, second wins the bluff roll
	e := New(testCatalog(), DefaultTuning(), &scripted{floats: []float64{0.99, 0.01}})

	amount, ok := e.Bid(BidInput{CardID: "mid-r", TotalPoints: 100, Points: 100, CurrentBid: 4, Grid: 1, Cap: 3})

	require.True(t, ok)
	assert.Equal(t, 5, amount)
}

func TestWillingnessDecaysByGrid(t *testing.T) {
	e := New(testCatalog(), DefaultTuning(), &scripted{})
	card, _ := testCatalog().Lookup("good-r")
	tier := e.tuning.tier(card.Score)
	prof := e.profile(nil)

	first := e.willingness(card, tier, prof, BidInput{TotalPoints: 100, Grid: 1, Cap: 3, Acquired: 3, Remaining: 3})
	later := e.willingness(card, tier, prof, BidInput{TotalPoints: 100, Grid: 4, Cap: 3, Acquired: 3, Remaining: 3})
	short := e.willingness(card, tier, prof, BidInput{TotalPoints: 100, Grid: 1, Cap: 3, Acquired: 0, Remaining: 3})

	assert.Greater(t, first, later)
	assert.Greater(t, short, first)
}

func TestShortfallBoostTracksCardsLeftInGrid(t *testing.T) {
	e := New(testCatalog(), DefaultTuning(), &scripted{})
	card, _ := testCatalog().Lookup("good-r")
	tier := e.tuning.tier(card.Score)
	prof := e.profile(nil)
	at := func(acquired, remaining int) float64 {
		return e.willingness(card, tier, prof, BidInput{TotalPoints: 100, Grid: 1, Cap: 3, Acquired: acquired, Remaining: remaining})
	}

	capped := at(3, 12)
	assert.InDelta(t, capped, at(0, 0), 1e-9, "no grid size, no boost")

	plenty := at(0, 12)
	tight := at(2, 2)
	scarce := at(2, 1)

	assert.InDelta(t, capped*(1+0.5*0.25), plenty, 1e-9, "three needed of twelve left")
	assert.InDelta(t, capped*1.5, tight, 1e-9, "needs every card left")
	assert.InDelta(t, tight, scarce, 1e-9, "boost is capped once short")
}

func TestLoadTuningOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
bluff_chance = 0.2
max_increment = 5
`), 0o600))

	tuning, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 0.2, tuning.BluffChance)
	assert.Equal(t, 5, tuning.MaxIncrement)
	assert.Equal(t, DefaultTuning().GridDecay, tuning.GridDecay)
	assert.Len(t, tuning.Tiers, 5)
}

func TestLoadTuningEmptyPathUsesDefaults(t *testing.T) {
	tuning, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tuning)
}

func TestShippedTuningMatchesDefaults(t *testing.T) {
	tuning, err := LoadTuning(filepath.Join("..", "..", "..", "configs", "bot.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tuning)
}
